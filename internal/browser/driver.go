// Package browser abstracts the browser-driving engine behind a small
// interface so the login, navigation, and submission controllers can be
// exercised without a real Chrome instance.
package browser

import (
	"context"
	"fmt"
	"time"
)

// Strategy names one way of locating a page element.
type Strategy string

const (
	ByID    Strategy = "id"
	ByName  Strategy = "name"
	ByCSS   Strategy = "css"
	ByTag   Strategy = "tag"
	ByXPath Strategy = "xpath"
)

// Candidate pairs a locator strategy with its selector string. Chains of
// candidates are declared most specific first; the order is the fallback
// priority, not a preference hint.
type Candidate struct {
	Strategy Strategy
	Selector string
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s=%s", c.Strategy, c.Selector)
}

// Element is a resolved locator. Actions re-query by the winning candidate
// each time, so a handle stays usable across page updates for as long as
// the locator still matches.
type Element struct {
	Candidate Candidate
}

// Driver is the opaque browser capability: navigate, query, act. A Driver
// drives exactly one browser session; it is not safe for concurrent use.
// Frame scope is part of driver state: after EnterFrame, queries and
// actions apply inside that frame until the release function runs.
type Driver interface {
	// Navigate loads url and waits for the document to be ready.
	// Navigation always resets the frame scope to the top-level document.
	Navigate(ctx context.Context, url string) error

	// Location returns the browser's current URL.
	Location(ctx context.Context) (string, error)

	// PageHTML returns the rendered HTML of the current frame scope.
	PageHTML(ctx context.Context) (string, error)

	// Probe reports whether c currently matches an element in the active
	// frame scope. It is a single check; polling belongs to the Resolver.
	Probe(ctx context.Context, c Candidate) (bool, error)

	Click(ctx context.Context, el Element) error
	Clear(ctx context.Context, el Element) error
	Type(ctx context.Context, el Element, text string) error

	// SelectValue picks the option with the given value on a select element.
	SelectValue(ctx context.Context, el Element, value string) error

	// OptionValues returns the value attributes of a select element's options.
	OptionValues(ctx context.Context, el Element) ([]string, error)

	// PressEnter sends an Enter keystroke to el, the keyboard fallback for
	// forms without a resolvable submit control.
	PressEnter(ctx context.Context, el Element) error

	// FrameCount returns the number of nested document contexts on the
	// current page.
	FrameCount(ctx context.Context) (int, error)

	// EnterFrame switches the driver scope into frame index. The returned
	// release restores the top-level scope and is safe to call more than
	// once. Nesting deeper than one level is an error.
	EnterFrame(ctx context.Context, index int) (release func(), err error)

	// Close releases the browser session.
	Close() error
}

// Wait sleeps for d or until ctx is cancelled. All settle delays in the
// controllers go through here so they stay bounded and cancellable.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WithFrame runs fn with the driver scoped into frame index, restoring the
// top-level scope afterwards on every path, including when fn fails.
func WithFrame(ctx context.Context, d Driver, index int, fn func() error) error {
	release, err := d.EnterFrame(ctx, index)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
