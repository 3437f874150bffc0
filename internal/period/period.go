// Package period implements the coarse date-range filter used by list views
// and reports.
package period

import (
	"fmt"
	"strings"
	"time"
)

type Period string

const (
	Today Period = "today"
	Week  Period = "week"
	Month Period = "month"
	All   Period = "all"
)

// Parse maps a query value to a Period. Empty means All.
func Parse(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "", All:
		return All, nil
	case Today, Week, Month:
		return p, nil
	default:
		return "", fmt.Errorf("invalid period %q (today|week|month|all)", s)
	}
}

// Range returns the half-open interval [from, to) containing anchor, in
// anchor's location. ok is false for All.
func (p Period) Range(anchor time.Time) (from, to time.Time, ok bool) {
	y, m, d := anchor.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, anchor.Location())

	switch p {
	case Today:
		return day, day.AddDate(0, 0, 1), true
	case Week:
		// ISO weeks start on Monday
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), true
	case Month:
		start := time.Date(y, m, 1, 0, 0, 0, 0, anchor.Location())
		return start, start.AddDate(0, 1, 0), true
	}
	return time.Time{}, time.Time{}, false
}
