package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/jobprep/internal/config"
	"github.com/jonathan/jobprep/internal/contacts"
	"github.com/jonathan/jobprep/internal/customizing"
	"github.com/jonathan/jobprep/internal/db"
	"github.com/jonathan/jobprep/internal/documents"
	"github.com/jonathan/jobprep/internal/emails"
	"github.com/jonathan/jobprep/internal/filtering"
	"github.com/jonathan/jobprep/internal/ingestion"
	"github.com/jonathan/jobprep/internal/llm"
	"github.com/jonathan/jobprep/internal/ratelimit"
	"github.com/jonathan/jobprep/internal/workflow"
)

// app bundles the wired application dependencies shared by the run, serve
// and ingest commands.
type app struct {
	cfg      config.Config
	store    *db.Store
	llm      llm.Client
	limits   *ratelimit.Registry
	handlers []workflow.StageHandler
	ingestor *ingestion.Ingestor
}

// loadConfig resolves the effective configuration: file values, then
// environment, then built-in defaults. CLI flags are applied by the caller
// before this merge.
func loadConfig(path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	cfg.ApplyEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildApp connects to the database and wires the full stage handler chain.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or 'database_url' config is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable or 'gemini_api_key' config is required")
	}

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	client, err := llm.NewClient(ctx, nil, cfg.GeminiAPIKey)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	limits := ratelimit.NewRegistry()

	profile := ""
	if cfg.ResumeProfile != "" {
		data, err := os.ReadFile(cfg.ResumeProfile)
		if err != nil {
			client.Close() //nolint:errcheck
			store.Close()
			return nil, fmt.Errorf("failed to read resume profile: %w", err)
		}
		profile = string(data)
	}

	collaborators := workflow.Collaborators{
		Filter:     filtering.New(client, limits),
		Customizer: customizing.New(client, limits, profile),
		Contacts: contacts.New(limits, contacts.Config{
			HunterAPIKey: cfg.HunterAPIKey,
			ApolloAPIKey: cfg.ApolloAPIKey,
			UseBrowser:   cfg.UseBrowser,
		}),
		Emails:    emails.New(client, limits, cfg.CandidateName),
		Documents: documents.New(cfg.OutputDir),
	}

	return &app{
		cfg:      cfg,
		store:    store,
		llm:      client,
		limits:   limits,
		handlers: workflow.Handlers(collaborators),
		ingestor: ingestion.New(client, limits, store, cfg.UseBrowser),
	}, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	if a.llm != nil {
		a.llm.Close() //nolint:errcheck
	}
	if a.store != nil {
		a.store.Close()
	}
}
