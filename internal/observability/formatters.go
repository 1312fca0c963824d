// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/journal-agent/internal/batch"
	"github.com/jonathan/journal-agent/internal/classify"
	"github.com/jonathan/journal-agent/internal/rocdate"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		line = truncate(line, boxWidth-4)
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintPlan outputs the days that a run would submit, with their
// converted dates, before any browser work starts.
func (p *Printer) PrintPlan(days []time.Time, content, categoryID string) {
	if len(days) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Range:    %s to %s\n",
		days[0].Format("2006-01-02"), days[len(days)-1].Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Days:     %d\n", len(days)))
	sb.WriteString(fmt.Sprintf("Category: %s\n", categoryID))

	sb.WriteString(fmt.Sprintf("Content:  %s\n\n", truncate(content, 40)))

	count := min(len(days), maxItemsToShow)
	for i := 0; i < count; i++ {
		roc, err := rocdate.Format(days[i])
		if err != nil {
			roc = "?"
		}
		sb.WriteString(fmt.Sprintf("  • %s  as  %s\n", days[i].Format("2006-01-02"), roc))
	}
	if len(days) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more days\n", len(days)-maxItemsToShow))
	}

	p.printBox("SUBMISSION PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult outputs the per-day outcomes and final counters of a run.
func (p *Printer) PrintResult(res *batch.Result) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Days:      %d planned, %d processed\n", res.Total, len(res.Days)))
	sb.WriteString(fmt.Sprintf("Succeeded: %d\n", res.Succeeded))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", res.Failed))

	if len(res.Days) > 0 {
		sb.WriteString("\n")
	}
	for _, day := range res.Days {
		sb.WriteString(fmt.Sprintf("%s %s", marker(day.Outcome.Kind), day.Date.Format("2006-01-02")))
		if day.Outcome.Kind == classify.ExplicitFailure && day.Outcome.Reason != "" {
			sb.WriteString(fmt.Sprintf("  %s", truncate(day.Outcome.Reason, 38)))
		}
		sb.WriteString("\n")
	}

	p.printBox("RUN RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// truncate shortens s to at most n runes, never splitting a multi-byte
// character; reasons carry the site's Chinese marker strings.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func marker(kind classify.Kind) string {
	switch kind {
	case classify.Success:
		return "✓"
	case classify.ExplicitFailure:
		return "⚠"
	default:
		return "?"
	}
}
