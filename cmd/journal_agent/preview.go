package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/journal-agent/internal/observability"
	"github.com/jonathan/journal-agent/internal/rocdate"
)

var previewCommand = &cobra.Command{
	Use:   "preview",
	Short: "Print the day-by-day plan without opening a browser",
	Long: `Shows every day the configured range would submit, with the date the
form would receive, so the range and content can be checked before a run.`,
	RunE: previewCmd,
}

var previewOpts runFlags

func init() {
	registerRunFlags(previewCommand, &previewOpts)
	rootCmd.AddCommand(previewCommand)
}

func previewCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, &previewOpts)
	if err != nil {
		return err
	}
	if err := requirePlanFields(cfg); err != nil {
		return err
	}

	start, end, err := cfg.DateRange()
	if err != nil {
		return err
	}
	days := rocdate.Range(start, end)
	if len(days) == 0 {
		return fmt.Errorf("no days between %s and %s", cfg.StartDate, cfg.EndDate)
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintPlan(days, cfg.Content, cfg.CategoryID)

	for _, day := range days {
		roc, err := rocdate.Format(day)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s  %s\n", day.Format("2006-01-02"), roc)
	}
	if len(cfg.CategoryIDs) > 0 {
		fmt.Fprintf(os.Stdout, "known categories: %s (using %s)\n",
			strings.Join(cfg.CategoryIDs, ", "), cfg.CategoryID)
	}
	return nil
}
