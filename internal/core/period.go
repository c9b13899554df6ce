package core

import (
	"fmt"
	"time"
)

// Period is a calendar month. All windowed aggregations use the half-open
// range [Start, End).
type Period struct {
	Year  int
	Month int // 1-12
}

// CurrentPeriod returns the period containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: int(now.Month())}
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// ParsePeriod parses a "YYYY-MM" tag.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	return Period{Year: t.Year(), Month: int(t.Month())}, nil
}

// Key returns the "YYYY-MM" tag used in cache keys.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Contains reports whether t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start()) && t.Before(p.End())
}

// Days returns the number of days in the month.
func (p Period) Days() int {
	return int(p.End().Sub(p.Start()).Hours() / 24)
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}
