package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/journal-agent/internal/config"
)

// runFlags carries the flag values shared by run, preview, and config save.
type runFlags struct {
	configPath string

	url        string
	username   string
	password   string
	categoryID string
	startDate  string
	endDate    string
	content    string

	delaySeconds int
	headless     bool
	verbose      bool

	databaseURL string
}

func registerRunFlags(cmd *cobra.Command, f *runFlags) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config JSON file (values can be overridden by other flags)")

	cmd.Flags().StringVar(&f.url, "url", "", "Site entry URL")
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "Login account")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "Login password (optional, defaults to JOURNAL_PASSWORD env var)")
	cmd.Flags().StringVar(&f.categoryID, "category", "", "Category value selected on the entry form")
	cmd.Flags().StringVar(&f.startDate, "start", "", "First day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.endDate, "end", "", "Last day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.content, "content", "", "Journal text submitted for every day")
	cmd.Flags().IntVar(&f.delaySeconds, "delay", 0, "Seconds to pause between days")
	cmd.Flags().BoolVar(&f.headless, "headless", false, "Hide the browser window")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed progress information")

	// Database URL for run-history persistence
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
}

// resolveConfig layers the configuration: file values first, then explicit
// flags, then built-in defaults, then env fallbacks for the secrets.
func resolveConfig(cmd *cobra.Command, f *runFlags) (config.Config, error) {
	var cfg config.Config

	path := f.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFileName); err == nil {
			path = config.DefaultFileName
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
		if f.verbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", path)
		}
	}

	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("url") {
		cfg.URL = f.url
	}
	if cmd.Flags().Changed("username") {
		cfg.Username = f.username
	}
	if cmd.Flags().Changed("password") {
		cfg.Password = f.password
	}
	if cmd.Flags().Changed("category") {
		cfg.CategoryID = f.categoryID
	}
	if cmd.Flags().Changed("start") {
		cfg.StartDate = f.startDate
	}
	if cmd.Flags().Changed("end") {
		cfg.EndDate = f.endDate
	}
	if cmd.Flags().Changed("content") {
		cfg.Content = f.content
	}
	if cmd.Flags().Changed("delay") {
		cfg.DelaySeconds = f.delaySeconds
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = f.headless
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		URL:        config.DefaultURL,
		CategoryID: config.DefaultCategoryID,
	})

	if cfg.Password == "" {
		cfg.Password = os.Getenv("JOURNAL_PASSWORD")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// requireRunFields checks the fields a live run cannot proceed without.
func requireRunFields(cfg config.Config) error {
	if cfg.Username == "" {
		return fmt.Errorf("--username is required (via flag or config)")
	}
	if cfg.Password == "" {
		return fmt.Errorf("--password, config password, or JOURNAL_PASSWORD env var is required")
	}
	return requirePlanFields(cfg)
}

// requirePlanFields checks the fields needed just to compute the day plan.
func requirePlanFields(cfg config.Config) error {
	if cfg.StartDate == "" || cfg.EndDate == "" {
		return fmt.Errorf("--start and --end are required (via flag or config)")
	}
	if cfg.Content == "" {
		return fmt.Errorf("--content is required (via flag or config)")
	}
	return nil
}
