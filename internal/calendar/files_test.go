package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
)

func TestFileWriter_Dispatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "calendars")
	w, err := NewFileWriter(dir, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("NewFileWriter() error: %v", err)
	}
	if w.Name() != "calendar" {
		t.Errorf("Name() = %q", w.Name())
	}

	delta := []*event.Event{
		testEvent("https://www.meetup.com/a/events/1/", "Go Night", "18:00"),
		testEvent("https://www.meetup.com/a/events/2/", "Go Night", "19:00"),
	}
	if err := w.Dispatch(context.Background(), dispatch.Batch{Delta: delta, Ledger: delta}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	for _, name := range []string{"2025-07-10_Go_Night.ics", "2025-07-10_Go_Night_2.ics"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if got := decodeEvents(t, data); len(got) != 1 {
			t.Errorf("%s holds %d events, want 1", name, len(got))
		}
	}
}

func TestFileWriter_EmptyDelta(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "calendars")
	w, err := NewFileWriter(dir, Options{})
	if err != nil {
		t.Fatalf("NewFileWriter() error: %v", err)
	}

	ledger := []*event.Event{testEvent("https://www.meetup.com/a/events/1/", "Old", "")}
	if err := w.Dispatch(context.Background(), dispatch.Batch{Ledger: ledger}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Dispatch() with an empty delta should not touch the output directory")
	}
}

func TestFileWriter_SkipsDoneEvents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "calendars")
	w, err := NewFileWriter(dir, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("NewFileWriter() error: %v", err)
	}

	past := testEvent("https://www.meetup.com/a/events/1/", "Past Night", "")
	past.Status = event.StatusDone
	delta := []*event.Event{past, testEvent("https://www.meetup.com/a/events/2/", "Next Night", "")}
	if err := w.Dispatch(context.Background(), dispatch.Batch{Delta: delta, Ledger: delta}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "2025-07-10_Next_Night.ics" {
		t.Errorf("files = %v, want only the upcoming event", entries)
	}
}

func TestNewFileWriter_RequiresDir(t *testing.T) {
	if _, err := NewFileWriter("", Options{}); err == nil {
		t.Error("NewFileWriter(\"\") should fail")
	}
}
