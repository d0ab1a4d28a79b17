// Package dateutil formats the calendar days used across the app:
// the expense list query parameter, the stored day column and the
// "today" value handed to every rendered view.
package dateutil

import "time"

// DayFormat is the canonical day layout used in URLs and storage.
const DayFormat = "2006-01-02"

// Today returns the current day formatted as DayFormat.
func Today() string {
	return time.Now().Format(DayFormat)
}

// FormatDay formats t as a calendar day.
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}

// ParseDay parses a DayFormat string.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayFormat, s)
}
