// Package batch drives the day-by-day submission loop: one login, one
// navigation to the entry form, then one entry per calendar day with a
// pause and a re-navigation between days.
package batch

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/jonathan/journal-agent/internal/browser"
	"github.com/jonathan/journal-agent/internal/classify"
	"github.com/jonathan/journal-agent/internal/entry"
	"github.com/jonathan/journal-agent/internal/navigate"
	"github.com/jonathan/journal-agent/internal/rocdate"
	"github.com/jonathan/journal-agent/internal/session"
)

// State is the run lifecycle. Transitions only move forward: Idle to
// Running, then either Completed or Stopping to Stopped.
type State int32

const (
	Idle State = iota
	Running
	Stopping
	Stopped
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// ProgressFunc receives counters after each day is recorded.
type ProgressFunc func(processed, total, succeeded, failed int)

// DayResult is the outcome for a single calendar day.
type DayResult struct {
	Date       time.Time
	Content    string
	CategoryID string
	Outcome    classify.Outcome
}

// Result summarizes a finished or interrupted run. Ambiguous outcomes
// count toward Succeeded: only an explicit rejection is a failure.
type Result struct {
	Total     int
	Succeeded int
	Failed    int
	Days      []DayResult
}

// RunInfo describes a run for record keeping.
type RunInfo struct {
	Username  string
	URL       string
	StartDate time.Time
	EndDate   time.Time
	Days      int
}

// Recorder persists run history. Recorder errors are logged and never
// interrupt the run.
type Recorder interface {
	StartRun(ctx context.Context, info RunInfo) error
	RecordDay(ctx context.Context, day DayResult) error
	FinishRun(ctx context.Context, res *Result) error
}

// Options configures a run.
type Options struct {
	Credentials session.Credentials
	StartDate   time.Time
	EndDate     time.Time
	Content     string
	CategoryID  string

	// Delay is the pause between consecutive days.
	Delay time.Duration

	// ContentFunc derives each day's content. Nil means the base content
	// verbatim for every day.
	ContentFunc entry.ContentFunc

	// CancelRequested is polled once before each day. Nil means the run
	// only stops on context cancellation.
	CancelRequested func() bool

	Progress ProgressFunc
	Recorder Recorder
	Logger   *log.Logger
}

// Driver owns the browser for the duration of a run.
type Driver struct {
	browser browser.Driver
	auth    authenticator
	nav     formNavigator
	sub     submitter
	opts    Options

	state atomic.Int32
}

type authenticator interface {
	Login(ctx context.Context, creds session.Credentials) error
}

type formNavigator interface {
	ReachEntryForm(ctx context.Context) error
}

type submitter interface {
	Submit(ctx context.Context, spec entry.Spec) classify.Outcome
}

// New wires a Driver over a live browser session.
func New(drv browser.Driver, opts Options) *Driver {
	resolver := &browser.Resolver{Driver: drv, Logger: opts.Logger}
	return &Driver{
		browser: drv,
		auth: &session.Controller{
			Driver: drv, Resolver: resolver, Logger: opts.Logger,
		},
		nav: &navigate.Navigator{
			Driver: drv, Resolver: resolver, Logger: opts.Logger,
			BaseURL: opts.Credentials.URL,
		},
		sub: &entry.Submitter{
			Driver: drv, Resolver: resolver, Logger: opts.Logger,
		},
		opts: opts,
	}
}

// State reports the current lifecycle state.
func (d *Driver) State() State {
	return State(d.state.Load())
}

func (d *Driver) setState(s State) {
	d.state.Store(int32(s))
}

// Run executes the full range. The browser is closed on every exit path.
// Total is zero until login and navigation have both succeeded; after
// that it is the full day count even when the run stops early.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	defer d.browser.Close()

	res := &Result{}
	d.setState(Running)

	days := rocdate.Range(d.opts.StartDate, d.opts.EndDate)
	if len(days) == 0 {
		d.setState(Stopped)
		return res, fmt.Errorf("no days between %s and %s",
			d.opts.StartDate.Format("2006-01-02"), d.opts.EndDate.Format("2006-01-02"))
	}

	if err := d.auth.Login(ctx, d.opts.Credentials); err != nil {
		d.setState(Stopped)
		return res, fmt.Errorf("login: %w", err)
	}
	if err := d.nav.ReachEntryForm(ctx); err != nil {
		d.setState(Stopped)
		return res, fmt.Errorf("reaching entry form: %w", err)
	}

	res.Total = len(days)
	d.startRun(ctx, RunInfo{
		Username:  d.opts.Credentials.Username,
		URL:       d.opts.Credentials.URL,
		StartDate: days[0],
		EndDate:   days[len(days)-1],
		Days:      len(days),
	})

	contentFor := d.opts.ContentFunc
	if contentFor == nil {
		contentFor = entry.Passthrough
	}

	interrupted := false
	for i, date := range days {
		if d.cancelRequested() {
			d.logf("[batch] stop requested, %d of %d days processed", i, res.Total)
			d.setState(Stopping)
			interrupted = true
			break
		}

		day := DayResult{
			Date:       date,
			Content:    contentFor(d.opts.Content, i),
			CategoryID: d.opts.CategoryID,
		}
		day.Outcome = d.sub.Submit(ctx, entry.Spec{
			Date:       day.Date,
			Content:    day.Content,
			CategoryID: day.CategoryID,
		})
		res.Days = append(res.Days, day)
		d.recordDay(ctx, day)

		if day.Outcome.Kind == classify.ExplicitFailure {
			res.Failed++
		} else {
			res.Succeeded++
		}
		if d.opts.Progress != nil {
			d.opts.Progress(len(res.Days), res.Total, res.Succeeded, res.Failed)
		}

		if i == len(days)-1 {
			continue
		}
		if err := browser.Wait(ctx, d.opts.Delay); err != nil {
			d.logf("[batch] interrupted between days: %v", err)
			d.setState(Stopping)
			interrupted = true
			break
		}
		// A failed hop back to the form is not fatal here: the next
		// day's submission reports its own failure against the page it
		// actually finds.
		if err := d.nav.ReachEntryForm(ctx); err != nil {
			d.logf("[batch] warning: returning to entry form: %v", err)
		}
	}

	d.finishRun(ctx, res)
	if interrupted {
		d.setState(Stopped)
	} else {
		d.setState(Completed)
	}
	d.logf("[batch] %s: %d succeeded, %d failed of %d",
		d.State(), res.Succeeded, res.Failed, res.Total)
	return res, nil
}

func (d *Driver) cancelRequested() bool {
	return d.opts.CancelRequested != nil && d.opts.CancelRequested()
}

func (d *Driver) startRun(ctx context.Context, info RunInfo) {
	if d.opts.Recorder == nil {
		return
	}
	if err := d.opts.Recorder.StartRun(ctx, info); err != nil {
		d.logf("[batch] warning: recording run start: %v", err)
	}
}

func (d *Driver) recordDay(ctx context.Context, day DayResult) {
	if d.opts.Recorder == nil {
		return
	}
	if err := d.opts.Recorder.RecordDay(ctx, day); err != nil {
		d.logf("[batch] warning: recording %s: %v", day.Date.Format("2006-01-02"), err)
	}
}

func (d *Driver) finishRun(ctx context.Context, res *Result) {
	if d.opts.Recorder == nil {
		return
	}
	if err := d.opts.Recorder.FinishRun(ctx, res); err != nil {
		d.logf("[batch] warning: recording run finish: %v", err)
	}
}

func (d *Driver) logf(format string, args ...any) {
	if d.opts.Logger != nil {
		d.opts.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
