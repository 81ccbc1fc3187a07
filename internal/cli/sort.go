package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortByGroup SortOrder = "group"
	SortByTitle SortOrder = "title"
)

// ParseSortOrder validates a --sort value.
func ParseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(s)); order {
	case SortByDate, SortByGroup, SortByTitle:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'date', 'group' or 'title')", s)
	}
}

// sortedEvents returns a sorted copy of events.
func sortedEvents(events []*event.Event, sortOrder SortOrder) []*event.Event {
	out := make([]*event.Event, len(events))
	copy(out, events)
	sortEvents(out, sortOrder)
	return out
}

// sortEvents sorts a slice of events based on the specified sort order
func sortEvents(events []*event.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(events[i], events[j])
		})
	case SortByGroup:
		sort.SliceStable(events, func(i, j int) bool {
			gi, gj := strings.ToLower(events[i].GroupName), strings.ToLower(events[j].GroupName)
			if gi != gj {
				return gi < gj
			}
			return compareByDate(events[i], events[j])
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			ti, tj := strings.ToLower(events[i].Title), strings.ToLower(events[j].Title)
			if ti != tj {
				return ti < tj
			}
			return compareByDate(events[i], events[j])
		})
	}
}

// compareByDate reports whether i starts before j. Undated events sort last.
func compareByDate(i, j *event.Event) bool {
	switch {
	case i.Date.IsZero() && j.Date.IsZero():
		return strings.ToLower(i.Title) < strings.ToLower(j.Title)
	case i.Date.IsZero():
		return false
	case j.Date.IsZero():
		return true
	case !i.Date.Equal(j.Date):
		return i.Date.Before(j.Date)
	}
	// "HH:MM" compares lexically; an unspecified time sorts first
	return i.Time < j.Time
}
