package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/jobprep/internal/config"
	"github.com/jonathan/jobprep/internal/observability"
	"github.com/jonathan/jobprep/internal/types"
	"github.com/jonathan/jobprep/internal/workflow"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run a batch of jobs through the application pipeline",
	Long: `Runs the selected jobs through the full pipeline: filter -> customize resume -> find contacts -> generate emails -> generate documents.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runBatchCmd,
}

var (
	runConfigPath      string
	runJobIDs          []string
	runAllJobs         bool
	runNoFilter        bool
	runNoResume        bool
	runNoContacts      bool
	runNoEmails        bool
	runNoDocuments     bool
	runEmailTemplate   string
	runFormats         []string
	runConcurrency     int
	runOutputDir       string
	runUseBrowser      bool
	runVerbose         bool
	runKeywords        []string
	runExcludeKeywords []string
	runLocations       []string
	runRemoteOnly      bool
	runMinSalary       int
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringSliceVarP(&runJobIDs, "job", "j", nil, "Job posting id to process (repeatable)")
	runCommand.Flags().BoolVar(&runAllJobs, "all", false, "Process every stored job posting")

	runCommand.Flags().BoolVar(&runNoFilter, "no-filter", false, "Skip the filtering stage")
	runCommand.Flags().BoolVar(&runNoResume, "no-resume", false, "Skip resume customization")
	runCommand.Flags().BoolVar(&runNoContacts, "no-contacts", false, "Skip contact discovery")
	runCommand.Flags().BoolVar(&runNoEmails, "no-emails", false, "Skip email generation")
	runCommand.Flags().BoolVar(&runNoDocuments, "no-documents", false, "Skip document generation")

	runCommand.Flags().StringVarP(&runEmailTemplate, "email-template", "t", "", "Email template name (professional, casual, direct)")
	runCommand.Flags().StringSliceVar(&runFormats, "formats", nil, "Document formats to render (html, pdf, markdown)")
	runCommand.Flags().IntVar(&runConcurrency, "concurrency", 0, "Maximum jobs processed in parallel")
	runCommand.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "Directory for generated documents")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed output")

	runCommand.Flags().StringSliceVar(&runKeywords, "keyword", nil, "Required keyword for the filtering stage (repeatable)")
	runCommand.Flags().StringSliceVar(&runExcludeKeywords, "exclude-keyword", nil, "Keyword that rejects a posting outright (repeatable)")
	runCommand.Flags().StringSliceVar(&runLocations, "location", nil, "Acceptable location (repeatable)")
	runCommand.Flags().BoolVar(&runRemoteOnly, "remote-only", false, "Reject postings that are not remote")
	runCommand.Flags().IntVar(&runMinSalary, "min-salary", 0, "Minimum acceptable salary")

	rootCmd.AddCommand(runCommand)
}

// buildBatchRequest assembles the batch request from the effective config
// and the resolved job ids.
func buildBatchRequest(cfg config.Config, jobIDs []uuid.UUID) *workflow.BatchRequest {
	req := workflow.NewBatchRequest(jobIDs)
	req.EnableFiltering = !runNoFilter
	req.EnableResumeCustomizing = !runNoResume
	req.EnableContactFinding = !runNoContacts
	req.EnableEmailGeneration = !runNoEmails
	req.EnableDocumentGeneration = !runNoDocuments

	if cfg.EmailTemplate != "" {
		req.EmailTemplate = cfg.EmailTemplate
	}
	if len(cfg.DocumentFormats) > 0 {
		req.DocumentFormats = cfg.DocumentFormats
	}
	if cfg.MaxConcurrentJobs > 0 {
		req.MaxConcurrentJobs = cfg.MaxConcurrentJobs
	}

	if len(runKeywords) > 0 || len(runExcludeKeywords) > 0 || len(runLocations) > 0 ||
		runRemoteOnly || runMinSalary > 0 {
		req.FilterCriteria = &types.FilterCriteria{
			Keywords:        runKeywords,
			ExcludeKeywords: runExcludeKeywords,
			Locations:       runLocations,
			RemoteOnly:      runRemoteOnly,
			MinSalary:       runMinSalary,
		}
	}

	return req
}

func runBatchCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("email-template") {
		cfg.EmailTemplate = runEmailTemplate
	}
	if cmd.Flags().Changed("formats") {
		cfg.DocumentFormats = runFormats
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.MaxConcurrentJobs = runConcurrency
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = runOutputDir
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	if len(runJobIDs) == 0 && !runAllJobs {
		return fmt.Errorf("provide at least one --job id or --all")
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	jobIDs, err := resolveJobIDs(ctx, a)
	if err != nil {
		return err
	}
	if len(jobIDs) == 0 {
		return fmt.Errorf("no jobs to process")
	}

	orchestrator := workflow.NewOrchestrator(a.store, a.handlers)
	printer := observability.NewPrinter(os.Stdout)

	if cfg.Verbose {
		orchestrator.AddProgressCallback(func(event workflow.ProgressEvent) {
			if event.Type == workflow.EventJobCompleted {
				printer.PrintJobOutcome(event.Outcome)
			}
		})
	}

	result, err := orchestrator.ProcessBatch(ctx, buildBatchRequest(cfg, jobIDs))
	if err != nil {
		return err
	}

	printer.PrintBatchResult(result)
	if cfg.Verbose {
		printer.PrintServiceLimits(a.limits.AllStatus())
	}

	if result.OverallStatus == workflow.StatusFailed {
		return fmt.Errorf("batch %s finished with %d failed jobs", result.RequestID, result.FailedJobs)
	}
	return nil
}

// resolveJobIDs turns the --job/--all flags into concrete job ids.
func resolveJobIDs(ctx context.Context, a *app) ([]uuid.UUID, error) {
	if runAllJobs {
		jobs, err := a.store.ListJobs(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list jobs: %w", err)
		}
		ids := make([]uuid.UUID, 0, len(jobs))
		for _, job := range jobs {
			ids = append(ids, job.ID)
		}
		return ids, nil
	}

	ids := make([]uuid.UUID, 0, len(runJobIDs))
	for _, raw := range runJobIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid job id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
