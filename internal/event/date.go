package event

import (
	"fmt"
	"strings"
	"time"
)

// dateTimeLayouts are the accepted spellings of a combined date and time.
// Layouts carrying an offset keep the wall clock of that offset, which is the
// local time of the event.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// dateLayouts are the accepted spellings of a bare calendar date.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// clockLayouts are the accepted spellings of a clock time.
var clockLayouts = []string{
	ClockLayout,
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3 PM",
}

// ParseDateTime splits an ISO 8601 timestamp into a calendar date and an
// HH:MM clock time.
func ParseDateTime(s string) (time.Time, string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return CalendarDate(t), t.Format(ClockLayout), nil
		}
	}
	if d, err := ParseDate(s); err == nil {
		return d, "", nil
	}
	return time.Time{}, "", fmt.Errorf("unrecognized date/time %q", s)
}

// ParseDate parses a calendar date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return CalendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseClock parses a clock time into HH:MM. An empty input is valid and
// yields an empty result.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized time %q", s)
}
