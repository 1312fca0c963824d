// Package db provides PostgreSQL persistence for run history.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/journal-agent/internal/batch"
	"github.com/jonathan/journal-agent/internal/rocdate"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the history tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS journal_runs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    username TEXT NOT NULL,
    site_url TEXT NOT NULL,
    start_date DATE NOT NULL,
    end_date DATE NOT NULL,
    planned_days INT NOT NULL,
    succeeded INT NOT NULL DEFAULT 0,
    failed INT NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS journal_run_days (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    run_id UUID NOT NULL REFERENCES journal_runs(id) ON DELETE CASCADE,
    entry_date DATE NOT NULL,
    roc_date TEXT NOT NULL,
    category_id TEXT NOT NULL,
    content TEXT NOT NULL,
    outcome TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Recorder persists one run's history. It implements batch.Recorder and
// carries the run row's ID between calls.
type Recorder struct {
	db    *DB
	runID uuid.UUID
}

var _ batch.Recorder = (*Recorder)(nil)

// Recorder returns a fresh Recorder bound to this pool.
func (db *DB) Recorder() *Recorder {
	return &Recorder{db: db}
}

// StartRun creates the run record and remembers its ID.
func (r *Recorder) StartRun(ctx context.Context, info batch.RunInfo) error {
	err := r.db.pool.QueryRow(ctx,
		`INSERT INTO journal_runs (username, site_url, start_date, end_date, planned_days, status)
		 VALUES ($1, $2, $3, $4, $5, 'running')
		 RETURNING id`,
		info.Username, info.URL, info.StartDate, info.EndDate, info.Days,
	).Scan(&r.runID)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// RecordDay stores one day's outcome under the active run.
func (r *Recorder) RecordDay(ctx context.Context, day batch.DayResult) error {
	if r.runID == uuid.Nil {
		return fmt.Errorf("no active run")
	}
	roc, err := rocdate.Format(day.Date)
	if err != nil {
		roc = ""
	}
	_, err = r.db.pool.Exec(ctx,
		`INSERT INTO journal_run_days (run_id, entry_date, roc_date, category_id, content, outcome, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.runID, day.Date, roc, day.CategoryID, day.Content, day.Outcome.Kind.String(), day.Outcome.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to record day %s: %w", day.Date.Format("2006-01-02"), err)
	}
	return nil
}

// FinishRun closes out the run record with final counters.
func (r *Recorder) FinishRun(ctx context.Context, res *batch.Result) error {
	if r.runID == uuid.Nil {
		return fmt.Errorf("no active run")
	}
	_, err := r.db.pool.Exec(ctx,
		`UPDATE journal_runs
		 SET status = $1, succeeded = $2, failed = $3, completed_at = NOW()
		 WHERE id = $4`,
		runStatus(res), res.Succeeded, res.Failed, r.runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// runStatus summarizes a result for the run row.
func runStatus(res *batch.Result) string {
	switch {
	case len(res.Days) < res.Total:
		return "stopped"
	case res.Failed > 0:
		return "completed_with_failures"
	default:
		return "completed"
	}
}
