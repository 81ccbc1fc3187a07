package notifier

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
)

func testEvents(n int) []*event.Event {
	events := make([]*event.Event, n)
	for i := range events {
		events[i] = &event.Event{
			Title:     "Go Night " + string(rune('A'+i)),
			Date:      time.Date(2025, 7, 10+i, 0, 0, 0, 0, time.UTC),
			Time:      "18:30",
			URL:       "https://www.meetup.com/go-austin/events/" + string(rune('a'+i)) + "/",
			VenueName: "Capital Factory",
			Address:   "701 Brazos St, Austin, TX, US",
			GroupName: "Go Austin",
			GroupURL:  "https://www.meetup.com/go-austin",
			SalesRep:  "alice",
			Status:    event.StatusUpcoming,
		}
	}
	return events
}

type recordingNotifier struct {
	calls [][]*event.Event
	err   error
}

func (r *recordingNotifier) Notify(ctx context.Context, events []*event.Event) error {
	r.calls = append(r.calls, events)
	return r.err
}

func TestIntegration_Dispatch(t *testing.T) {
	rec := &recordingNotifier{}
	in := AsIntegration("slack", rec)

	if in.Name() != "slack" {
		t.Errorf("Name() = %q, want slack", in.Name())
	}

	ledger := testEvents(3)
	if err := in.Dispatch(context.Background(), dispatch.Batch{Ledger: ledger}); err != nil {
		t.Fatalf("Dispatch() with empty delta error: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Error("Dispatch() notified with an empty delta")
	}

	if err := in.Dispatch(context.Background(), dispatch.Batch{Delta: ledger[2:], Ledger: ledger}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(rec.calls) != 1 || len(rec.calls[0]) != 1 {
		t.Fatalf("calls = %v, want one call with the delta only", rec.calls)
	}

	rec.err = errors.New("down")
	if err := in.Dispatch(context.Background(), dispatch.Batch{Delta: ledger}); !errors.Is(err, rec.err) {
		t.Errorf("Dispatch() error = %v, want notifier error", err)
	}
}

func TestIntegration_DispatchSkipsDone(t *testing.T) {
	rec := &recordingNotifier{}
	in := AsIntegration("telegram", rec)

	delta := testEvents(3)
	delta[0].Status = event.StatusDone
	if err := in.Dispatch(context.Background(), dispatch.Batch{Delta: delta, Ledger: delta}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(rec.calls) != 1 || len(rec.calls[0]) != 2 {
		t.Fatalf("calls = %v, want one call with the 2 upcoming events", rec.calls)
	}
	for _, evt := range rec.calls[0] {
		if !evt.IsUpcoming() {
			t.Errorf("notified about DONE event %s", evt.URL)
		}
	}

	rec.calls = nil
	if err := in.Dispatch(context.Background(), dispatch.Batch{Delta: delta[:1]}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Error("Dispatch() notified with only DONE events in the delta")
	}
}

func TestWhenAndPlace(t *testing.T) {
	evt := testEvents(1)[0]
	if got := when(evt); got != "2025-07-10 at 18:30" {
		t.Errorf("when() = %q", got)
	}
	evt.Time = ""
	if got := when(evt); got != "2025-07-10" {
		t.Errorf("when() without time = %q", got)
	}

	if got := place(evt); got != "Capital Factory" {
		t.Errorf("place() = %q", got)
	}
	evt.IsOnline = true
	if got := place(evt); got != "Online" {
		t.Errorf("place() online = %q", got)
	}
	evt.IsOnline = false
	evt.VenueName = ""
	if got := place(evt); got != "TBD" {
		t.Errorf("place() unknown = %q", got)
	}
}

func TestDryRunNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewDryRunNotifier(&buf)

	if err := n.Notify(context.Background(), testEvents(2)); err != nil {
		t.Fatalf("Notify() error = %v, want nil", err)
	}

	out := buf.String()
	for _, want := range []string{"New event 1/2", "New event 2/2", "Go Night A", "alice", "701 Brazos St"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
