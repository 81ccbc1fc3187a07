package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pfrederiksen/meetup-events/internal/calendar"
	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/google"
	"github.com/pfrederiksen/meetup-events/internal/pipeline"
)

func testSummary() *pipeline.Summary {
	return &pipeline.Summary{
		RunID:         "run-1",
		GroupsTotal:   3,
		GroupsFetched: 2,
		GroupsFailed:  1,
		FailedGroups:  []string{"https://www.meetup.com/broken/"},
		NewEvents: []*event.Event{
			{Title: "Second", Date: day(8), URL: "https://www.meetup.com/go/events/2/", GroupName: "Go", SalesRep: "Ana"},
			{Title: "First", Date: day(4), Time: "18:30", URL: "https://www.meetup.com/go/events/1/", GroupName: "Go", IsOnline: true},
		},
		LedgerSize:     5,
		LedgerUpcoming: 4,
		LedgerDone:     1,
		Integrations: []dispatch.Outcome{
			{Integration: "slack"},
			{Integration: "telegram", Err: errors.New("boom"), Error: "boom"},
		},
	}
}

func TestWriteSummary_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, testSummary(), FormatText, SortByDate, false); err != nil {
		t.Fatalf("WriteSummary() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2 new event(s):",
		"NEW: 2030-03-04 18:30 - First (Go)",
		"NEW: 2030-03-08 - Second (Go)",
		"Groups: 2 fetched, 1 failed",
		"Failed groups: https://www.meetup.com/broken/",
		"Ledger: 5 events (4 upcoming, 1 done)",
		"slack: ok",
		"telegram: FAILED (boom)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "First") > strings.Index(out, "Second") {
		t.Errorf("events not sorted by date:\n%s", out)
	}
	if strings.Contains(out, "URL:") {
		t.Errorf("non-verbose output should not include URLs:\n%s", out)
	}
}

func TestWriteSummary_TextVerbose(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, testSummary(), FormatText, SortByDate, true); err != nil {
		t.Fatalf("WriteSummary() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"URL: https://www.meetup.com/go/events/1/",
		"Where: Online",
		"Rep: Ana",
		"Records: 0 scraped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("verbose output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummary_TextNoEvents(t *testing.T) {
	var buf bytes.Buffer
	s := &pipeline.Summary{DryRun: true}
	if err := WriteSummary(&buf, s, FormatText, SortByDate, false); err != nil {
		t.Fatalf("WriteSummary() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No new events found.") {
		t.Errorf("output = %q, want no-events message", out)
	}
	if !strings.Contains(out, "Dry run") {
		t.Errorf("output = %q, want dry run notice", out)
	}
}

func TestWriteSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	s := testSummary()
	if err := WriteSummary(&buf, s, FormatJSON, SortByTitle, false); err != nil {
		t.Fatalf("WriteSummary() error: %v", err)
	}

	var decoded struct {
		RunID     string `json:"run_id"`
		NewEvents []struct {
			Title string `json:"title"`
		} `json:"new_events"`
		IntegrationsFailed []string `json:"integrations_failed"`
		Integrations       []struct {
			Integration string `json:"integration"`
			Error       string `json:"error"`
		} `json:"integrations"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.RunID != "run-1" {
		t.Errorf("run_id = %q, want run-1", decoded.RunID)
	}
	if len(decoded.NewEvents) != 2 || decoded.NewEvents[0].Title != "First" {
		t.Errorf("new_events = %+v, want First then Second", decoded.NewEvents)
	}
	if len(decoded.Integrations) != 2 || decoded.Integrations[1].Error != "boom" {
		t.Errorf("integrations = %+v", decoded.Integrations)
	}
	// The caller's summary keeps its order.
	if s.NewEvents[0].Title != "Second" {
		t.Errorf("summary events reordered")
	}
}

func TestWriteSummary_UnknownFormat(t *testing.T) {
	if err := WriteSummary(&bytes.Buffer{}, testSummary(), "xml", SortByDate, false); err == nil {
		t.Error("WriteSummary() should reject unknown format")
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("nothing exported", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteExport(&buf, &calendar.ExportResult{Skipped: 3}, FormatText); err != nil {
			t.Fatal(err)
		}
		if got := buf.String(); !strings.Contains(got, "No new events to export (3 already exported)") {
			t.Errorf("output = %q", got)
		}
	})

	t.Run("exported", func(t *testing.T) {
		var buf bytes.Buffer
		res := &calendar.ExportResult{
			Path:     "/tmp/all.ics",
			Exported: []*event.Event{{Title: "Meetup", Date: day(2)}},
		}
		if err := WriteExport(&buf, res, FormatText); err != nil {
			t.Fatal(err)
		}
		got := buf.String()
		if !strings.Contains(got, "Exported 1 event(s) to /tmp/all.ics") || !strings.Contains(got, "2030-03-02 - Meetup") {
			t.Errorf("output = %q", got)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteExport(&buf, &calendar.ExportResult{Path: "x.ics", Skipped: 1}, FormatJSON); err != nil {
			t.Fatal(err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["path"] != "x.ics" {
			t.Errorf("path = %v, want x.ics", decoded["path"])
		}
	})
}

func TestWriteReset(t *testing.T) {
	reset := &google.ResetResult{Deleted: 2, Cleared: 3}

	var buf bytes.Buffer
	if err := WriteReset(&buf, reset, nil, FormatText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "Reset: 2 deleted, 3 cleared, 0 failed\n" {
		t.Errorf("output = %q", got)
	}

	buf.Reset()
	if err := WriteReset(&buf, reset, &google.SyncResult{Created: 4}, FormatText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); !strings.Contains(got, "Resync: 4 created") {
		t.Errorf("output = %q", got)
	}

	buf.Reset()
	if err := WriteReset(&buf, reset, nil, FormatJSON); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); strings.Contains(got, "resync") {
		t.Errorf("JSON without resync should omit it: %s", got)
	}
}
