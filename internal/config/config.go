// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/journal-agent/internal/schemas"
)

const (
	// DefaultURL is the site entry point used when none is configured.
	DefaultURL = "https://psf.nchu.edu.tw/punch/Menu.jsp"
	// DefaultDelaySeconds is the pause between consecutive days.
	DefaultDelaySeconds = 1
	// DefaultCategoryID is the category preselected on the entry form.
	DefaultCategoryID = "1"

	// DefaultFileName is the config file looked up in the working directory.
	DefaultFileName = "journal_agent.json"

	dateLayout = "2006-01-02"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	URL      string `json:"url,omitempty" validate:"omitempty,url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	CategoryID string `json:"category_id,omitempty"`
	// CategoryIDs is the known category list, kept so the preview can show
	// what the site offers without opening a browser.
	CategoryIDs []string `json:"category_ids,omitempty"`

	StartDate string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Content   string `json:"content,omitempty"`

	DelaySeconds int  `json:"delay_seconds,omitempty" validate:"gte=0"`
	Headless     bool `json:"headless,omitempty"`
	Verbose      bool `json:"verbose,omitempty"`

	DatabaseURL string `json:"database_url,omitempty"`
}

// configSchema is checked against the raw file before unmarshalling, so a
// malformed file reports field-level problems instead of a decode error.
const configSchema = `{
  "type": "object",
  "properties": {
    "url": {"type": "string"},
    "username": {"type": "string"},
    "password": {"type": "string"},
    "category_id": {"type": "string"},
    "category_ids": {"type": "array", "items": {"type": "string"}},
    "start_date": {"type": "string"},
    "end_date": {"type": "string"},
    "content": {"type": "string"},
    "delay_seconds": {"type": "integer", "minimum": 0},
    "headless": {"type": "boolean"},
    "verbose": {"type": "boolean"},
    "database_url": {"type": "string"}
  },
  "additionalProperties": false
}`

// Load reads configuration from a JSON file.
// Returns an error if the file cannot be read, fails the schema, or fails validation.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
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

	if err := schemas.ValidateJSONString(configSchema, string(data)); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return fmt.Errorf("config error: field %q fails %q", errs[0].Field(), errs[0].Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.StartDate != "" && c.EndDate != "" {
		start, end, err := c.DateRange()
		if err != nil {
			return err
		}
		if end.Before(start) {
			return fmt.Errorf("config error: 'end_date' %s is before 'start_date' %s", c.EndDate, c.StartDate)
		}
	}
	return nil
}

// DateRange parses the configured start and end dates.
func (c *Config) DateRange() (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("config error: bad 'start_date' %q: %w", c.StartDate, err)
	}
	end, err = time.Parse(dateLayout, c.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("config error: bad 'end_date' %q: %w", c.EndDate, err)
	}
	return start, end, nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.URL == "" {
		result.URL = defaults.URL
	}
	if result.Username == "" {
		result.Username = defaults.Username
	}
	if result.Password == "" {
		result.Password = defaults.Password
	}
	if result.CategoryID == "" {
		result.CategoryID = defaults.CategoryID
	}
	if result.StartDate == "" {
		result.StartDate = defaults.StartDate
	}
	if result.EndDate == "" {
		result.EndDate = defaults.EndDate
	}
	if result.Content == "" {
		result.Content = defaults.Content
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if len(result.CategoryIDs) == 0 {
		result.CategoryIDs = defaults.CategoryIDs
	}

	// Int fields: use default if zero
	if result.DelaySeconds == 0 {
		if defaults.DelaySeconds > 0 {
			result.DelaySeconds = defaults.DelaySeconds
		} else {
			result.DelaySeconds = DefaultDelaySeconds
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Save writes the configuration as indented JSON. The file carries the
// password, so it is written owner-only.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultFileName
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Clear removes a saved config file. A missing file is not an error.
func Clear(path string) error {
	if path == "" {
		path = DefaultFileName
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove config file %s: %w", path, err)
	}
	return nil
}
