package notifier

import (
	"context"

	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
)

// Notifier defines the interface for posting event notifications
type Notifier interface {
	// Notify posts notifications for the given events
	Notify(ctx context.Context, events []*event.Event) error
}

// Integration runs a Notifier on the delta of a run. Runs without new events
// post nothing.
type Integration struct {
	name     string
	notifier Notifier
}

// AsIntegration adapts n to the dispatcher under name.
func AsIntegration(name string, n Notifier) *Integration {
	return &Integration{name: name, notifier: n}
}

// Name returns the integration name.
func (i *Integration) Name() string {
	return i.name
}

// Dispatch notifies about the UPCOMING events of batch.Delta. Events first
// seen after they already happened are not announced.
func (i *Integration) Dispatch(ctx context.Context, batch dispatch.Batch) error {
	events := event.Upcoming(batch.Delta)
	if len(events) == 0 {
		return nil
	}
	return i.notifier.Notify(ctx, events)
}

// when formats the event date and, if known, its clock time.
func when(evt *event.Event) string {
	date := evt.DateString()
	if date == "" {
		date = "TBD"
	}
	if evt.Time != "" {
		return date + " at " + evt.Time
	}
	return date
}

// place is the short location shown in chat messages.
func place(evt *event.Event) string {
	switch {
	case evt.IsOnline:
		return event.OnlineVenue
	case evt.VenueName != "":
		return evt.VenueName
	default:
		return "TBD"
	}
}
