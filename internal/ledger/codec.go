package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

// Columns is the persisted header, in order.
var Columns = []string{
	"title",
	"date",
	"time",
	"event_url",
	"description",
	"venue_name",
	"address",
	"is_online",
	"group_name",
	"group_url",
	"sales_rep",
	"status",
}

const (
	colTitle = iota
	colDate
	colTime
	colURL
	colDescription
	colVenueName
	colAddress
	colIsOnline
	colGroupName
	colGroupURL
	colSalesRep
	colStatus
)

// Decode reads a ledger document. An empty document is an empty ledger.
// Columns after the known header are ignored so older files that carried
// extra bookkeeping columns still load.
func Decode(r io.Reader) ([]*event.Event, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []*event.Event{}, nil
	}
	if err != nil {
		return nil, &CorruptError{Line: 1, Err: err}
	}
	if err := checkHeader(header); err != nil {
		return nil, &CorruptError{Line: 1, Err: err}
	}

	events := make([]*event.Event, 0)
	seen := make(map[string]bool)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &CorruptError{Line: parseErrorLine(err), Err: err}
		}
		line, _ := reader.FieldPos(0)
		if len(record) < len(Columns) {
			return nil, &CorruptError{Line: line, Err: fmt.Errorf("expected %d fields, got %d", len(Columns), len(record))}
		}

		evt, err := decodeRow(record)
		if err != nil {
			return nil, &CorruptError{Line: line, Err: err}
		}
		if seen[evt.URL] {
			return nil, &CorruptError{Line: line, Err: fmt.Errorf("duplicate event_url %q", evt.URL)}
		}
		seen[evt.URL] = true
		events = append(events, evt)
	}

	return events, nil
}

func checkHeader(header []string) error {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if len(header) < len(Columns) {
		return fmt.Errorf("header has %d columns, want %d", len(header), len(Columns))
	}
	for i, name := range Columns {
		if header[i] != name {
			return fmt.Errorf("header column %d is %q, want %q", i+1, header[i], name)
		}
	}
	return nil
}

func decodeRow(record []string) (*event.Event, error) {
	url := record[colURL]
	if url == "" {
		return nil, errors.New("empty event_url")
	}

	// Older ledgers hold undated events; they load with a zero Date.
	var date time.Time
	if cell := strings.TrimSpace(record[colDate]); cell != "" {
		d, err := event.ParseDate(cell)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", url, err)
		}
		date = d
	}

	clock := record[colTime]
	if clock != "" {
		var err error
		if clock, err = event.ParseClock(clock); err != nil {
			return nil, fmt.Errorf("event %s: %w", url, err)
		}
	}

	online, err := parseBool(record[colIsOnline])
	if err != nil {
		return nil, fmt.Errorf("event %s: is_online: %w", url, err)
	}

	status, err := event.ParseStatus(record[colStatus])
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", url, err)
	}

	return &event.Event{
		Title:       record[colTitle],
		Date:        date,
		Time:        clock,
		URL:         url,
		Description: record[colDescription],
		VenueName:   record[colVenueName],
		Address:     record[colAddress],
		IsOnline:    online,
		GroupName:   record[colGroupName],
		GroupURL:    record[colGroupURL],
		SalesRep:    record[colSalesRep],
		Status:      status,
	}, nil
}

func parseErrorLine(err error) int {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Line
	}
	return 0
}

// parseBool accepts Go and Python boolean spellings; empty means false.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0":
		return false, nil
	case "true", "1":
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

// Encode writes events as a ledger document, sorted by date ascending.
func Encode(w io.Writer, events []*event.Event) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, evt := range Sorted(events) {
		if err := writer.Write(Row(evt)); err != nil {
			return fmt.Errorf("writing event %s: %w", evt.URL, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Row returns evt's cells in Columns order.
func Row(evt *event.Event) []string {
	return []string{
		evt.Title,
		evt.DateString(),
		evt.Time,
		evt.URL,
		evt.Description,
		evt.VenueName,
		evt.Address,
		strconv.FormatBool(evt.IsOnline),
		evt.GroupName,
		evt.GroupURL,
		evt.SalesRep,
		string(evt.Status),
	}
}

// Sorted returns a copy of events ordered by date ascending, then by clock
// time. Undated events go last. Events sharing a date and time keep their
// relative order.
func Sorted(events []*event.Event) []*event.Event {
	out := make([]*event.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Date, out[j].Date
		if di.IsZero() != dj.IsZero() {
			return dj.IsZero()
		}
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// IndexByURL maps each event URL to its event. URLs are matched exactly.
func IndexByURL(events []*event.Event) map[string]*event.Event {
	index := make(map[string]*event.Event, len(events))
	for _, evt := range events {
		index[evt.URL] = evt
	}
	return index
}
