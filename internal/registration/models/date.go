package models

import (
	"time"

	dErrors "registrar/pkg/domain-errors"
)

// DateLayout is the wire and storage format of course dates.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date. The result is midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeValidation, "dates must use the YYYY-MM-DD format")
	}
	return d, nil
}

// DateOf drops the clock part of t, keeping the calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
