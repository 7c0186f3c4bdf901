// Package config provides configuration loading and validation for the CLI
// and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the application configuration, loadable from a JSON file.
// All fields are optional; missing values use defaults, environment
// variables or CLI flags.
type Config struct {
	// Connections
	DatabaseURL  string `json:"database_url,omitempty"`   // PostgreSQL connection URL
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // LLM provider key
	HunterAPIKey string `json:"hunter_api_key,omitempty"` // Hunter.io contact discovery key
	ApolloAPIKey string `json:"apollo_api_key,omitempty"` // Apollo.io contact discovery key
	JWTSecret    string `json:"jwt_secret,omitempty"`     // empty disables API authentication

	// Candidate
	CandidateName string `json:"candidate_name,omitempty"`
	ResumeProfile string `json:"resume_profile,omitempty"` // path to the base resume text file

	// Batch defaults
	EmailTemplate     string   `json:"email_template,omitempty"`
	DocumentFormats   []string `json:"document_formats,omitempty"`
	MaxConcurrentJobs int      `json:"max_concurrent_jobs,omitempty"`

	// Behavior
	OutputDir  string `json:"output_dir,omitempty"`  // document output directory
	UseBrowser bool   `json:"use_browser,omitempty"` // headless browser for SPA job boards
	Verbose    bool   `json:"verbose,omitempty"`
	Port       int    `json:"port,omitempty"`        // HTTP server port
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv fills empty credential fields from environment variables, so
// secrets can stay out of the config file.
func (c *Config) ApplyEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.HunterAPIKey == "" {
		c.HunterAPIKey = os.Getenv("HUNTER_API_KEY")
	}
	if c.ApolloAPIKey == "" {
		c.ApolloAPIKey = os.Getenv("APOLLO_API_KEY")
	}
	if c.JWTSecret == "" {
		c.JWTSecret = os.Getenv("JWT_SECRET")
	}
}

// Validate checks that the configuration has valid values. Required fields
// are checked later by the commands that need them.
func (c *Config) Validate() error {
	if c.MaxConcurrentJobs < 0 {
		return fmt.Errorf("config error: 'max_concurrent_jobs' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be a valid port number")
	}
	if c.ResumeProfile != "" {
		if _, err := os.Stat(c.ResumeProfile); os.IsNotExist(err) {
			return fmt.Errorf("config error: resume profile file not found: %s", c.ResumeProfile)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. Config file values act as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.HunterAPIKey == "" {
		result.HunterAPIKey = defaults.HunterAPIKey
	}
	if result.ApolloAPIKey == "" {
		result.ApolloAPIKey = defaults.ApolloAPIKey
	}
	if result.JWTSecret == "" {
		result.JWTSecret = defaults.JWTSecret
	}
	if result.CandidateName == "" {
		result.CandidateName = defaults.CandidateName
	}
	if result.ResumeProfile == "" {
		result.ResumeProfile = defaults.ResumeProfile
	}
	if result.EmailTemplate == "" {
		result.EmailTemplate = defaults.EmailTemplate
	}
	if len(result.DocumentFormats) == 0 {
		result.DocumentFormats = defaults.DocumentFormats
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.MaxConcurrentJobs == 0 {
		result.MaxConcurrentJobs = defaults.MaxConcurrentJobs
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields cannot distinguish unset from false; CLI flags always win.

	return result
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		EmailTemplate:     "professional",
		DocumentFormats:   []string{"html", "pdf", "markdown"},
		MaxConcurrentJobs: 3,
		OutputDir:         "output",
		Port:              8080,
	}
}
