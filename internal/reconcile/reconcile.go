package reconcile

import (
	"time"

	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/ledger"
)

// Result contains the outcome of reconciling one scraped batch
type Result struct {
	Ledger     []*event.Event // full ledger, sorted by date
	Delta      []*event.Event // events first seen in this run, in scrape order
	Duplicates int            // scraped records dropped as in-batch duplicates
	Known      int            // scraped records already present in the ledger
}

// Merge reconciles scraped against the existing ledger as of today. Neither
// input is modified; the returned events are copies.
func Merge(existing, scraped []*event.Event, today time.Time) *Result {
	result := &Result{
		Ledger: make([]*event.Event, 0, len(existing)+len(scraped)),
		Delta:  make([]*event.Event, 0),
	}

	for _, evt := range existing {
		result.Ledger = append(result.Ledger, evt.Clone())
	}
	known := ledger.IndexByURL(result.Ledger)

	seen := make(map[string]bool, len(scraped))
	for _, evt := range scraped {
		if seen[evt.URL] {
			result.Duplicates++
			continue
		}
		seen[evt.URL] = true

		if _, exists := known[evt.URL]; exists {
			result.Known++
			continue
		}

		added := evt.Clone()
		result.Ledger = append(result.Ledger, added)
		result.Delta = append(result.Delta, added)
	}

	Recompute(result.Ledger, today)
	result.Ledger = ledger.Sorted(result.Ledger)
	return result
}

// Recompute sets the status of every event relative to today, in place.
// Events dated before today become DONE; DONE events stay DONE. Undated
// events stay UPCOMING.
func Recompute(events []*event.Event, today time.Time) {
	today = event.CalendarDate(today)
	for _, evt := range events {
		switch {
		case evt.Status == event.StatusDone:
			// monotonic
		case !evt.Date.IsZero() && evt.Date.Before(today):
			evt.Status = event.StatusDone
		default:
			evt.Status = event.StatusUpcoming
		}
	}
}

// Today returns the calendar date of now in loc, the run date used for status
// transitions.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return event.CalendarDate(now.In(loc))
}

// Counts tallies ledger events by status.
func Counts(events []*event.Event) (upcoming, done int) {
	for _, evt := range events {
		if evt.Status == event.StatusDone {
			done++
		} else {
			upcoming++
		}
	}
	return upcoming, done
}
