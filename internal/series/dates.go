package series

import (
	"fmt"
	"strings"
	"time"
)

// Day is the fixed step of every daily series.
const Day = 24 * time.Hour

// dateLayouts are the formats seen in the published spreadsheets and in job files.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2 2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006 01 02",
	time.RFC3339,
}

// Midnight truncates t to 00:00 UTC on its calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses s using the known layouts and returns it at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Midnight(b).Sub(Midnight(a)) / Day)
}

// DateRange returns every date from start to end inclusive.
func DateRange(start, end time.Time) []time.Time {
	start, end = Midnight(start), Midnight(end)
	if end.Before(start) {
		return nil
	}
	dates := make([]time.Time, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
