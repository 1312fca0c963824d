package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrNotFound reports that every candidate in a chain individually timed
// out. Callers discriminate it with errors.Is to tell a missing element
// from an engine fault.
var ErrNotFound = errors.New("no locator candidate matched")

// defaultPollInterval is how often a candidate is re-probed while waiting
// for it to appear.
const defaultPollInterval = 250 * time.Millisecond

// Resolver finds elements through ordered candidate chains. Each candidate
// gets its own bounded polling window before the next one is tried; the
// first hit wins regardless of whether later candidates would also match.
type Resolver struct {
	Driver Driver
	Logger *log.Logger

	// Interval overrides the probe interval; zero means the default.
	Interval time.Duration
}

func (r *Resolver) interval() time.Duration {
	if r.Interval > 0 {
		return r.Interval
	}
	return defaultPollInterval
}

// Resolve returns the first candidate that matches within perCandidate.
// role names the field for logging and error context only.
func (r *Resolver) Resolve(ctx context.Context, role string, candidates []Candidate, perCandidate time.Duration) (Element, error) {
	for _, c := range candidates {
		found, err := r.pollOne(ctx, c, perCandidate)
		if err != nil {
			return Element{}, fmt.Errorf("locating %s via %s: %w", role, c, err)
		}
		if found {
			r.logf("[locate] %s resolved via %s", role, c)
			return Element{Candidate: c}, nil
		}
	}
	return Element{}, fmt.Errorf("%s: %w", role, ErrNotFound)
}

// pollOne probes a single candidate until it matches or timeout elapses.
func (r *Resolver) pollOne(ctx context.Context, c Candidate, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(r.interval())
	defer ticker.Stop()

	for {
		found, err := r.Driver.Probe(ctx, c)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
