package utils

import (
	"time"

	"github.com/yukikurage/field-report-api/internal/constants"
)

// ParseDate parses a YYYY-MM-DD value in loc. An empty string yields nil.
func ParseDate(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(constants.DateLayout, value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatDate renders a date for history notes; nil renders as "none".
func FormatDate(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Format(constants.DateLayout)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay compares calendar dates, with b converted to a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
