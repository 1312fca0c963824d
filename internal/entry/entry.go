// Package entry fills and submits a single journal entry. The form is
// single-use: after one submission the page changes, and the navigator
// must bring the browser back before the next day can be filled.
package entry

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/jonathan/journal-agent/internal/browser"
	"github.com/jonathan/journal-agent/internal/classify"
	"github.com/jonathan/journal-agent/internal/rocdate"
)

// Spec describes one day's entry.
type Spec struct {
	Date       time.Time
	Content    string
	CategoryID string
}

// ContentFunc derives a day's content from the base text and the day's
// index within the range. The default passes the base through unchanged;
// the seam exists so content could vary per day without touching the
// batch driver.
type ContentFunc func(base string, dayIndex int) string

// Passthrough returns the base content unchanged for every day.
func Passthrough(base string, _ int) string {
	return base
}

// Field locator chains, most specific first. The attribute selector for
// the content field really does say required='ture': the site misspells
// the attribute value and the selector must match what is actually there.
var (
	dateCandidates = []browser.Candidate{
		{Strategy: browser.ByID, Selector: "date"},
		{Strategy: browser.ByName, Selector: "date"},
		{Strategy: browser.ByCSS, Selector: `input[placeholder*='民國yyymmdd']`},
	}
	contentCandidates = []browser.Candidate{
		{Strategy: browser.ByID, Selector: "work"},
		{Strategy: browser.ByName, Selector: "work"},
		{Strategy: browser.ByCSS, Selector: `input[required='ture']`},
	}
	categoryCandidates = []browser.Candidate{
		{Strategy: browser.ByID, Selector: "schno"},
		{Strategy: browser.ByName, Selector: "schno"},
		{Strategy: browser.ByTag, Selector: "select"},
	}
	submitCandidates = []browser.Candidate{
		{Strategy: browser.ByID, Selector: "btnSent"},
		{Strategy: browser.ByName, Selector: "btnSent"},
		{Strategy: browser.ByCSS, Selector: `input[value*='新增']`},
		{Strategy: browser.ByCSS, Selector: `input[onclick*='add']`},
	}
)

// Submitter fills and submits entries.
type Submitter struct {
	Driver   browser.Driver
	Resolver *browser.Resolver
	Logger   *log.Logger

	// Classifier judges the post-submission page. Zero value means the
	// standard submission markers.
	Classifier classify.Classifier

	// FieldTimeout bounds the wait for each required-field candidate.
	FieldTimeout time.Duration
	// Settle is the pause after submission before the page is judged.
	Settle time.Duration
}

func (s *Submitter) classifier() classify.Classifier {
	if len(s.Classifier.Positive) > 0 || len(s.Classifier.Negative) > 0 {
		return s.Classifier
	}
	return classify.Submission()
}

func (s *Submitter) fieldTimeout() time.Duration {
	if s.FieldTimeout > 0 {
		return s.FieldTimeout
	}
	return 10 * time.Second
}

func (s *Submitter) settle() time.Duration {
	if s.Settle > 0 {
		return s.Settle
	}
	return 3 * time.Second
}

// Submit fills the form for one day and classifies the result. Faults on
// required fields fold into an explicit failure for that day rather than
// an error; the batch continues with the next day either way. The frame
// scope is restored to top level on every path.
func (s *Submitter) Submit(ctx context.Context, spec Spec) classify.Outcome {
	day := spec.Date.Format("2006-01-02")

	roc, err := rocdate.Format(spec.Date)
	if err != nil {
		return s.fail(day, "date conversion", err)
	}

	exitFrame := s.enterFormFrame(ctx)
	defer exitFrame()

	// Date field.
	dateField, err := s.Resolver.Resolve(ctx, "date field", dateCandidates, s.fieldTimeout())
	if err != nil {
		return s.fail(day, "date field", err)
	}
	if err := s.Driver.Clear(ctx, dateField); err != nil {
		return s.fail(day, "clearing date field", err)
	}
	if err := s.Driver.Type(ctx, dateField, roc); err != nil {
		return s.fail(day, "typing date", err)
	}
	s.logf("[submit] %s: date filled as %s", day, roc)

	// Content field.
	contentField, err := s.Resolver.Resolve(ctx, "content field", contentCandidates, s.fieldTimeout())
	if err != nil {
		return s.fail(day, "content field", err)
	}
	if err := s.Driver.Clear(ctx, contentField); err != nil {
		return s.fail(day, "clearing content field", err)
	}
	if err := s.Driver.Type(ctx, contentField, spec.Content); err != nil {
		return s.fail(day, "typing content", err)
	}

	// Category select. Not fatal: the site may accept the default option.
	s.selectCategory(ctx, spec.CategoryID)

	// Submit control.
	submitBtn, err := s.Resolver.Resolve(ctx, "submit button", submitCandidates, s.fieldTimeout())
	if err != nil {
		return s.fail(day, "submit button", err)
	}
	if err := s.Driver.Click(ctx, submitBtn); err != nil {
		return s.fail(day, "clicking submit", err)
	}

	if err := browser.Wait(ctx, s.settle()); err != nil {
		return s.fail(day, "post-submit settle", err)
	}

	// Judge the result from the top-level document, the way the page
	// renders its status banner.
	exitFrame()
	html, err := s.Driver.PageHTML(ctx)
	if err != nil {
		return s.fail(day, "reading result page", err)
	}

	outcome := s.classifier().Classify(classify.VisibleText(html))
	switch outcome.Kind {
	case classify.Success:
		s.logf("[submit] %s: accepted", day)
	case classify.ExplicitFailure:
		s.logf("[submit] %s: rejected (%s)", day, outcome.Reason)
	case classify.Ambiguous:
		s.logf("[submit] %s: submitted, no status message found", day)
	}
	return outcome
}

// enterFormFrame scopes the driver into the nested context holding the
// form when the date field is not at top level. The returned function is
// idempotent and always restores the top-level scope.
func (s *Submitter) enterFormFrame(ctx context.Context) func() {
	noop := func() {}

	found, err := s.Driver.Probe(ctx, dateCandidates[0])
	if err == nil && found {
		return noop
	}

	count, err := s.Driver.FrameCount(ctx)
	if err != nil || count == 0 {
		return noop
	}

	for i := 0; i < count; i++ {
		release, err := s.Driver.EnterFrame(ctx, i)
		if err != nil {
			continue
		}
		found, err := s.Driver.Probe(ctx, dateCandidates[0])
		if err == nil && found {
			s.logf("[submit] form found in nested context %d", i)
			var once sync.Once
			return func() { once.Do(release) }
		}
		release()
	}
	return noop
}

// selectCategory picks the configured category on the select control.
// Mismatches are logged with the available options, never fatal.
func (s *Submitter) selectCategory(ctx context.Context, categoryID string) {
	sel, err := s.Resolver.Resolve(ctx, "category select", categoryCandidates, s.fieldTimeout())
	if err != nil {
		s.logf("[submit] warning: category select not found: %v", err)
		return
	}

	values, err := s.Driver.OptionValues(ctx, sel)
	if err != nil {
		s.logf("[submit] warning: could not list category options: %v", err)
	} else if !slices.Contains(values, categoryID) {
		s.logf("[submit] warning: category %q not among options %v", categoryID, values)
		return
	}

	if err := s.Driver.SelectValue(ctx, sel, categoryID); err != nil {
		s.logf("[submit] warning: selecting category %q failed: %v", categoryID, err)
		return
	}
	s.logf("[submit] category %q selected", categoryID)
}

func (s *Submitter) fail(day, step string, err error) classify.Outcome {
	s.logf("[submit] %s: %s failed: %v", day, step, err)
	return classify.Outcome{
		Kind:   classify.ExplicitFailure,
		Reason: fmt.Sprintf("%s: %v", step, err),
	}
}

func (s *Submitter) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
