// Package rocdate converts Gregorian dates into the Republic of China
// (Minguo) calendar encoding the journal system expects, and expands
// date ranges into daily steps.
package rocdate

import (
	"fmt"
	"time"
)

// eraOffset is the difference between a Gregorian year and its ROC era year.
const eraOffset = 1911

// Format returns the ROC date string for t: era year zero-padded to three
// digits, then two-digit month and day with no separators.
// For example 2024-03-05 becomes "1130305".
// Dates at or before the era epoch (year 1911) are rejected.
func Format(t time.Time) (string, error) {
	if t.Year() <= eraOffset {
		return "", fmt.Errorf("year %d predates the ROC era", t.Year())
	}
	return fmt.Sprintf("%03d%02d%02d", t.Year()-eraOffset, int(t.Month()), t.Day()), nil
}

// Range returns every calendar day from start through end inclusive.
// When start is after end the result is empty, not an error; callers are
// expected to validate range order before building a run.
func Range(start, end time.Time) []time.Time {
	start = midnight(start)
	end = midnight(end)

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
