package event

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an Event.
type Status string

const (
	StatusUpcoming Status = "UPCOMING"
	StatusDone     Status = "DONE"
)

// ParseStatus parses a persisted status value. An empty value is treated as
// UPCOMING so ledgers written before the status column existed still load.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusUpcoming:
		return StatusUpcoming, nil
	case StatusDone:
		return StatusDone, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

const (
	// DateLayout is the ISO 8601 calendar date layout used for Event.Date.
	DateLayout = "2006-01-02"
	// ClockLayout is the HH:MM layout used for Event.Time.
	ClockLayout = "15:04"
)

// Event represents a single Meetup event as recorded in the ledger
type Event struct {
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`           // calendar date, midnight UTC
	Time        string    `json:"time,omitempty"` // local clock time "HH:MM", empty when unspecified
	URL         string    `json:"event_url"`
	Description string    `json:"description"`
	VenueName   string    `json:"venue_name"`
	Address     string    `json:"address"`
	IsOnline    bool      `json:"is_online"`
	GroupName   string    `json:"group_name"`
	GroupURL    string    `json:"group_url"`
	SalesRep    string    `json:"sales_rep"`
	Status      Status    `json:"status"`
}

// DateString returns the event date formatted as YYYY-MM-DD.
func (e *Event) DateString() string {
	if e.Date.IsZero() {
		return ""
	}
	return e.Date.Format(DateLayout)
}

// Start returns the event start in loc. Events without a clock time start at
// defaultHour.
func (e *Event) Start(loc *time.Location, defaultHour int) time.Time {
	hour, minute := defaultHour, 0
	if e.Time != "" {
		if t, err := time.Parse(ClockLayout, e.Time); err == nil {
			hour, minute = t.Hour(), t.Minute()
		}
	}
	return time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), hour, minute, 0, 0, loc)
}

// Location returns the human readable place of the event: "Online", the
// address, or the venue name, in that order of preference.
func (e *Event) Location() string {
	switch {
	case e.IsOnline:
		return OnlineVenue
	case e.Address != "":
		return e.Address
	default:
		return e.VenueName
	}
}

// IsUpcoming reports whether the event has not been marked DONE.
func (e *Event) IsUpcoming() bool {
	return e.Status != StatusDone
}

// HasDate reports whether the event has a calendar date. Only legacy ledger
// rows lack one.
func (e *Event) HasDate() bool {
	return !e.Date.IsZero()
}

// Upcoming returns the events not marked DONE, keeping their order.
func Upcoming(events []*Event) []*Event {
	out := make([]*Event, 0, len(events))
	for _, evt := range events {
		if evt.IsUpcoming() {
			out = append(out, evt)
		}
	}
	return out
}

// Clone returns a copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	return &c
}

// CalendarDate truncates t to its calendar date in t's own location and
// returns that date at midnight UTC, the representation used by Event.Date.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
