package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobprep/internal/observability"
)

var (
	ingestConfigPath string
	ingestURLs       []string
	ingestUseBrowser bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch job postings from URLs and store them",
	Long:  `Fetches each URL, extracts the structured job posting and stores it. Stored postings can then be processed with 'jobprep run'.`,
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestConfigPath, "config", "", "Path to config.json file")
	ingestCmd.Flags().StringSliceVarP(&ingestURLs, "url", "u", nil, "Job posting URL to ingest (repeatable)")
	ingestCmd.Flags().BoolVar(&ingestUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(ingestConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = ingestUseBrowser
	}

	urls := append(ingestURLs, args...)
	if len(urls) == 0 {
		return fmt.Errorf("provide at least one URL via --url or as an argument")
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// The schema must exist before the first insert.
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	printer := observability.NewPrinter(os.Stdout)
	var failed int
	for _, url := range urls {
		job, err := a.ingestor.FromURL(ctx, url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to ingest %s: %v\n", url, err)
			failed++
			continue
		}
		if err := a.store.InsertJob(ctx, job); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to store %s: %v\n", url, err)
			failed++
			continue
		}
		printer.PrintJobPosting(job)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d postings failed to ingest", failed, len(urls))
	}
	return nil
}
