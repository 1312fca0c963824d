package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/journal-agent/internal/batch"
	"github.com/jonathan/journal-agent/internal/browser"
	"github.com/jonathan/journal-agent/internal/db"
	"github.com/jonathan/journal-agent/internal/observability"
	"github.com/jonathan/journal-agent/internal/rocdate"
	"github.com/jonathan/journal-agent/internal/session"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Submit one journal entry per day over the configured range",
	Long: `Opens the site, logs in, navigates to the entry form, and submits one
entry per calendar day: date converted to the site's era format, the
configured content, the configured category. A pause and a return to the
form separate consecutive days. Interrupt (Ctrl-C) stops after the
current day and still prints the summary.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runJournalCmd,
}

var runOpts runFlags

func init() {
	registerRunFlags(runCommand, &runOpts)
	rootCmd.AddCommand(runCommand)
}

func runJournalCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(cmd, &runOpts)
	if err != nil {
		return err
	}
	if err := requireRunFields(cfg); err != nil {
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
	if cfg.Verbose {
		printer.PrintPlan(days, cfg.Content, cfg.CategoryID)
	}

	chrome, err := browser.Start(ctx, browser.StartOptions{Headless: cfg.Headless})
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	// Run history is best effort: a missing database downgrades to a warning.
	var recorder batch.Recorder
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("[run] warning: run history disabled: %v", err)
		} else {
			defer database.Close()
			if err := database.EnsureSchema(ctx); err != nil {
				log.Printf("[run] warning: run history disabled: %v", err)
			} else {
				recorder = database.Recorder()
			}
		}
	}

	var stopRequested atomic.Bool
	driver := batch.New(chrome, batch.Options{
		Credentials: session.Credentials{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		StartDate:  start,
		EndDate:    end,
		Content:    cfg.Content,
		CategoryID: cfg.CategoryID,
		Delay:      time.Duration(cfg.DelaySeconds) * time.Second,
		CancelRequested: func() bool {
			return stopRequested.Load()
		},
		Progress: func(processed, total, succeeded, failed int) {
			fmt.Fprintf(os.Stdout, "[%d/%d] %d succeeded, %d failed\n",
				processed, total, succeeded, failed)
		},
		Recorder: recorder,
	})

	// The first interrupt requests a stop after the current day; the
	// batch closes the browser itself on exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stdout, "stop requested, finishing the current day")
			stopRequested.Store(true)
		case <-done:
		}
	}()

	var result *batch.Result
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		res, err := driver.Run(gctx)
		result = res
		return err
	})
	err = group.Wait()
	close(done)

	// Partial results still matter after a failure or a stop.
	printer.PrintResult(result)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d days were rejected", result.Failed, result.Total)
	}
	return nil
}
