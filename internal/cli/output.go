package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pfrederiksen/meetup-events/internal/calendar"
	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/google"
	"github.com/pfrederiksen/meetup-events/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteSummary writes the run summary in the specified format. New events
// are listed in sortOrder.
func WriteSummary(w io.Writer, summary *pipeline.Summary, format OutputFormat, sortOrder SortOrder, verbose bool) error {
	sorted := *summary
	sorted.NewEvents = sortedEvents(summary.NewEvents, sortOrder)

	switch format {
	case FormatJSON:
		return writeJSON(w, &sorted)
	case FormatText:
		return writeSummaryText(w, &sorted, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeSummaryText(w io.Writer, s *pipeline.Summary, verbose bool) error {
	if s.DryRun {
		fmt.Fprintln(w, "Dry run: ledger not saved, integrations skipped.")
	}

	if s.NewCount() == 0 {
		fmt.Fprintln(w, "No new events found.")
	} else {
		fmt.Fprintf(w, "%d new event(s):\n", s.NewCount())
		for _, evt := range s.NewEvents {
			writeEventText(w, evt, verbose)
		}
	}

	fmt.Fprintf(w, "\nGroups: %d fetched, %d failed", s.GroupsFetched, s.GroupsFailed)
	if s.GroupsDuplicate > 0 {
		fmt.Fprintf(w, ", %d duplicate", s.GroupsDuplicate)
	}
	fmt.Fprintln(w)
	if len(s.FailedGroups) > 0 {
		fmt.Fprintf(w, "Failed groups: %s\n", strings.Join(s.FailedGroups, ", "))
	}
	if verbose {
		fmt.Fprintf(w, "Records: %d scraped, %d malformed, %d duplicate\n",
			s.RecordsScraped, s.RecordsMalformed, s.RecordsDuplicate)
	}
	fmt.Fprintf(w, "Ledger: %d events (%d upcoming, %d done)\n", s.LedgerSize, s.LedgerUpcoming, s.LedgerDone)

	for _, o := range s.Integrations {
		if o.OK() {
			fmt.Fprintf(w, "  %s: ok\n", o.Integration)
		} else {
			fmt.Fprintf(w, "  %s: FAILED (%s)\n", o.Integration, o.Error)
		}
	}
	return nil
}

func writeEventText(w io.Writer, evt *event.Event, verbose bool) {
	date := evt.DateString()
	if date == "" {
		date = "undated"
	}
	if evt.Time != "" {
		date += " " + evt.Time
	}
	fmt.Fprintf(w, "  NEW: %s - %s (%s)\n", date, evt.Title, evt.GroupName)
	if !verbose {
		return
	}
	fmt.Fprintf(w, "       URL: %s\n", evt.URL)
	if loc := evt.Location(); loc != "" {
		fmt.Fprintf(w, "       Where: %s\n", loc)
	}
	if evt.SalesRep != "" {
		fmt.Fprintf(w, "       Rep: %s\n", evt.SalesRep)
	}
}

// WriteExport reports an export-calendar run.
func WriteExport(w io.Writer, res *calendar.ExportResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, res)
	}
	if len(res.Exported) == 0 {
		fmt.Fprintf(w, "No new events to export (%d already exported).\n", res.Skipped)
		return nil
	}
	fmt.Fprintf(w, "Exported %d event(s) to %s (%d already exported).\n", len(res.Exported), res.Path, res.Skipped)
	for _, evt := range res.Exported {
		fmt.Fprintf(w, "  %s - %s\n", evt.DateString(), evt.Title)
	}
	return nil
}

// resetReport is what reset-calendar prints.
type resetReport struct {
	Reset  *google.ResetResult `json:"reset"`
	Resync *google.SyncResult  `json:"resync,omitempty"`
}

// WriteReset reports a reset-calendar run. sync is nil without --resync.
func WriteReset(w io.Writer, reset *google.ResetResult, sync *google.SyncResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, resetReport{Reset: reset, Resync: sync})
	}
	fmt.Fprintf(w, "Reset: %d deleted, %d cleared, %d failed\n", reset.Deleted, reset.Cleared, reset.Failed)
	if sync != nil {
		fmt.Fprintf(w, "Resync: %d created, %d already synced, %d without rep email, %d failed\n",
			sync.Created, sync.AlreadySynced, sync.NoEmail, sync.Failed)
	}
	return nil
}
