package core

import (
	"testing"
	"time"
)

func TestPeriodKey(t *testing.T) {
	if got := (Period{Year: 2025, Month: 3}).Key(); got != "2025-03" {
		t.Fatalf("Key() = %q, want 2025-03", got)
	}
	if got := (Period{Year: 2025, Month: 12}).Key(); got != "2025-12" {
		t.Fatalf("Key() = %q, want 2025-12", got)
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-03")
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if p.Year != 2025 || p.Month != 3 {
		t.Fatalf("ParsePeriod = %+v", p)
	}
	if _, err := ParsePeriod("2025/03"); err == nil {
		t.Fatal("expected error for bad format")
	}
}

// The window is half-open: the first instant of the next month is outside.
func TestPeriodContains(t *testing.T) {
	p := Period{Year: 2025, Month: 3}
	cases := []struct {
		t    time.Time
		want bool
	}{
		{time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC), true},
		{time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC), false},
	}
	for i, tc := range cases {
		if got := p.Contains(tc.t); got != tc.want {
			t.Errorf("case %d: Contains(%v) = %v, want %v", i, tc.t, got, tc.want)
		}
	}
}

func TestPeriodDays(t *testing.T) {
	cases := []struct {
		p    Period
		want int
	}{
		{Period{2025, 1}, 31},
		{Period{2025, 2}, 28},
		{Period{2024, 2}, 29},
		{Period{2025, 4}, 30},
	}
	for _, tc := range cases {
		if got := tc.p.Days(); got != tc.want {
			t.Errorf("%s.Days() = %d, want %d", tc.p.Key(), got, tc.want)
		}
	}
}

func TestCurrentPeriod(t *testing.T) {
	now := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)
	p := CurrentPeriod(now)
	if p.Year != 2025 || p.Month != 7 {
		t.Fatalf("CurrentPeriod = %+v", p)
	}
}
