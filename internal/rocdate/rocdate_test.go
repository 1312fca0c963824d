package rocdate

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		in       time.Time
		expected string
		wantErr  bool
	}{
		{"modern date", date(2024, time.March, 5), "1130305", false},
		{"two digit era year", date(1999, time.December, 31), "0881231", false},
		{"first era year", date(1912, time.January, 1), "0010101", false},
		{"era epoch year rejected", date(1911, time.June, 15), "", true},
		{"pre-era year rejected", date(1900, time.January, 1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Format(%v) expected error, got %q", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Format(%v) unexpected error: %v", tt.in, err)
			}
			if got != tt.expected {
				t.Errorf("Format(%v) = %q, expected %q", tt.in, got, tt.expected)
			}
			if len(got) != 7 {
				t.Errorf("Format(%v) length = %d, expected 7", tt.in, len(got))
			}
		})
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		expected   int
	}{
		{"single day", date(2024, time.January, 1), date(2024, time.January, 1), 1},
		{"one week", date(2024, time.January, 1), date(2024, time.January, 7), 7},
		{"month boundary", date(2024, time.January, 30), date(2024, time.February, 2), 4},
		{"reversed range is empty", date(2024, time.January, 7), date(2024, time.January, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := Range(tt.start, tt.end)
			if len(days) != tt.expected {
				t.Fatalf("Range(%v, %v) produced %d days, expected %d", tt.start, tt.end, len(days), tt.expected)
			}
			for i := 1; i < len(days); i++ {
				if !days[i].After(days[i-1]) {
					t.Errorf("days not in ascending order at index %d", i)
				}
			}
		})
	}
}

func TestRangeIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2024, time.January, 1, 23, 59, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 2, 0, 1, 0, 0, time.UTC)

	days := Range(start, end)
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Hour() != 0 || days[0].Minute() != 0 {
		t.Errorf("expected midnight-normalized days, got %v", days[0])
	}
}
