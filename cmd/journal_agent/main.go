// Package main provides the entry point for the journal autofill CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "journal_agent",
	Short: "Automated daily journal submission",
	Long:  "journal_agent logs in to the university journal site and submits one entry per calendar day over a date range, with per-day outcomes reported at the end.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
