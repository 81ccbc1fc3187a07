package event

import (
	"fmt"
	"strconv"
	"strings"
)

// Raw record field names produced by the extraction step.
const (
	FieldTitle       = "title"
	FieldURL         = "url"
	FieldDateTime    = "date_time"
	FieldDate        = "date"
	FieldTime        = "time"
	FieldDescription = "description"
	FieldVenueName   = "venue_name"
	FieldAddress     = "address"
	FieldIsOnline    = "is_online"
	FieldEventType   = "event_type"
	FieldGroupName   = "group_name"
)

const (
	// MaxDescriptionLength bounds Event.Description, counted in runes.
	MaxDescriptionLength = 500
	// Ellipsis marks a truncated description.
	Ellipsis = "..."
	// OnlineVenue is the venue name of every online event.
	OnlineVenue = "Online"
)

// RawRecord is one loosely typed event record as returned by the extraction
// step.
type RawRecord map[string]any

// String returns the named field as a trimmed string.
func (r RawRecord) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Bool returns the named field as a boolean. Strings are parsed leniently.
func (r RawRecord) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return false
	}
}

// Normalize converts a raw record extracted from group's page into an Event.
// The sales rep always comes from the group configuration. Records without a
// title, URL or parsable date are rejected with a *MalformedRecordError.
func Normalize(raw RawRecord, group Group) (*Event, error) {
	url := raw.String(FieldURL)
	if url == "" {
		return nil, &MalformedRecordError{Field: FieldURL, Reason: "is missing"}
	}

	title := raw.String(FieldTitle)
	if title == "" {
		return nil, &MalformedRecordError{URL: url, Field: FieldTitle, Reason: "is missing"}
	}

	evt := &Event{
		Title:       title,
		URL:         url,
		Description: TruncateDescription(raw.String(FieldDescription)),
		GroupName:   raw.String(FieldGroupName),
		GroupURL:    group.CanonicalURL(),
		SalesRep:    strings.TrimSpace(group.SalesRep),
		Status:      StatusUpcoming,
	}

	if err := normalizeWhen(raw, evt); err != nil {
		return nil, err
	}

	evt.IsOnline = raw.Bool(FieldIsOnline) || strings.EqualFold(raw.String(FieldEventType), "ONLINE")
	if evt.IsOnline {
		evt.VenueName = OnlineVenue
		evt.Address = ""
	} else {
		evt.VenueName = raw.String(FieldVenueName)
		evt.Address = raw.String(FieldAddress)
	}

	return evt, nil
}

// normalizeWhen fills Date and Time from either a combined timestamp or
// separate date and time fields.
func normalizeWhen(raw RawRecord, evt *Event) error {
	if dt := raw.String(FieldDateTime); dt != "" {
		date, clock, err := ParseDateTime(dt)
		if err != nil {
			return &MalformedRecordError{URL: evt.URL, Field: FieldDateTime, Reason: "is not a valid timestamp", Err: err}
		}
		evt.Date, evt.Time = date, clock
		return nil
	}

	ds := raw.String(FieldDate)
	if ds == "" {
		return &MalformedRecordError{URL: evt.URL, Field: FieldDate, Reason: "is missing"}
	}
	date, err := ParseDate(ds)
	if err != nil {
		return &MalformedRecordError{URL: evt.URL, Field: FieldDate, Reason: "is not a valid date", Err: err}
	}
	clock, err := ParseClock(raw.String(FieldTime))
	if err != nil {
		return &MalformedRecordError{URL: evt.URL, Field: FieldTime, Reason: "is not a valid time", Err: err}
	}
	evt.Date, evt.Time = date, clock
	return nil
}

// TruncateDescription bounds s to MaxDescriptionLength runes, appending
// Ellipsis when anything was cut.
func TruncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxDescriptionLength {
		return s
	}
	return string(runes[:MaxDescriptionLength]) + Ellipsis
}
