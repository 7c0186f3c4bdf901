// Package main provides the entry point for the jobprep CLI and server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jobprep",
	Short: "Job application preparation pipeline",
	Long:  "jobprep ingests job postings and runs them through a batch pipeline: filtering, resume customization, contact discovery, outreach email drafting and document generation.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
