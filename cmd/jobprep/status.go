package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobprep/internal/db"
	"github.com/jonathan/jobprep/internal/observability"
)

var (
	statusConfigPath string
	statusLimit      int
	statusJSON       bool
)

var statusCmd = &cobra.Command{
	Use:   "status [request-id]",
	Short: "Show stored batch results",
	Long:  `Without arguments, lists recent batch runs. With a request id, shows that batch's per-job outcomes.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusConfigPath, "config", "", "Path to config.json file")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "Maximum batches to list")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit raw JSON instead of formatted output")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(statusConfigPath)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or 'database_url' config is required")
	}

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	if len(args) == 1 {
		return showBatch(ctx, store, args[0])
	}
	return listBatches(ctx, store)
}

func showBatch(ctx context.Context, store *db.Store, requestID string) error {
	result, err := store.GetBatchResult(ctx, requestID)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("batch not found: %s", requestID)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintBatchResult(result)
	for _, outcome := range result.JobResults {
		printer.PrintJobOutcome(outcome)
	}
	return nil
}

func listBatches(ctx context.Context, store *db.Store) error {
	summaries, err := store.ListBatchResults(ctx, statusLimit)
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No batch runs stored.")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("%-40s %-10s %d/%d/%d of %d  %s\n",
			s.RequestID, s.OverallStatus, s.SuccessfulJobs, s.FailedJobs,
			s.SkippedJobs, s.TotalJobs, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
