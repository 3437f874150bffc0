// Package datefmt converts between the console's display format (DD/MM/YYYY)
// and ISO dates (YYYY-MM-DD).
package datefmt

import (
	"errors"
	"strings"
	"time"
)

const (
	ISO     = "2006-01-02"
	Display = "02/01/2006"
)

var ErrFormat = errors.New("date must be YYYY-MM-DD or DD/MM/YYYY")

// Parse accepts either format, plus a full RFC 3339 timestamp, and returns the
// calendar date at midnight UTC.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{ISO, Display} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, ErrFormat
}

// ToISO converts a display date to ISO.
func ToISO(display string) (string, error) {
	t, err := time.Parse(Display, strings.TrimSpace(display))
	if err != nil {
		return "", ErrFormat
	}
	return t.Format(ISO), nil
}

// ToDisplay converts an ISO date to display format.
func ToDisplay(iso string) (string, error) {
	t, err := time.Parse(ISO, strings.TrimSpace(iso))
	if err != nil {
		return "", ErrFormat
	}
	return t.Format(Display), nil
}

// Date is a calendar date. It marshals to ISO and unmarshals from either
// format. The zero value marshals to null.
type Date struct {
	time.Time
}

func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(ISO) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := Parse(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Ptr returns nil for the zero date, for nullable columns.
func (d Date) Ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// FromPtr is the inverse of Ptr.
func FromPtr(t *time.Time) Date {
	if t == nil {
		return Date{}
	}
	y, m, day := t.Date()
	return NewDate(y, m, day)
}
