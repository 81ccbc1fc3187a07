package calendar

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

const (
	// ProductID identifies the generator in every calendar we write.
	ProductID = "-//Meetup Events//meetup-events//EN"

	// DefaultStartHour is used for events whose clock time is unknown.
	DefaultStartHour = 18

	// DefaultDuration is used when no duration is configured.
	DefaultDuration = 2 * time.Hour

	uidDomain      = "meetup-events"
	maxFilenameLen = 50
)

// Options control how events are rendered.
type Options struct {
	Location  *time.Location    // zone of the ledger's clock times, UTC when nil
	Duration  time.Duration     // event length, DefaultDuration when zero
	RepEmails map[string]string // sales rep name -> email, used for ORGANIZER
	Now       func() time.Time  // DTSTAMP source, time.Now when nil
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Window returns the start and end of evt under opts.
func Window(evt *event.Event, opts Options) (time.Time, time.Time) {
	opts = opts.withDefaults()
	start := evt.Start(opts.Location, DefaultStartHour)
	return start, start.Add(opts.Duration)
}

// UID derives a stable iCalendar UID from the event URL, so re-exporting an
// event updates it in the client instead of duplicating it.
func UID(eventURL string) string {
	sum := md5.Sum([]byte(eventURL))
	return hex.EncodeToString(sum[:]) + "@" + uidDomain
}

// Description is the body shared by ICS and CalDAV events.
func Description(evt *event.Event) string {
	var b strings.Builder
	if evt.Description != "" {
		b.WriteString(evt.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Event URL: %s\nGroup: %s", evt.URL, evt.GroupName)
	return b.String()
}

// NewCalendar returns an empty VCALENDAR carrying our product ID.
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	return cal
}

// NewObject returns a calendar holding only evt, suitable for storing on a
// CalDAV server. Stored objects must not carry a METHOD.
func NewObject(evt *event.Event, opts Options) *ical.Calendar {
	cal := NewCalendar()
	cal.Children = append(cal.Children, NewEvent(evt, opts))
	return cal
}

// NewEvent renders evt as a VEVENT component.
func NewEvent(evt *event.Event, opts Options) *ical.Component {
	opts = opts.withDefaults()
	start, end := Window(evt, opts)

	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, UID(evt.URL))
	comp.Props.SetDateTime(ical.PropDateTimeStamp, opts.Now().UTC())
	comp.Props.SetDateTime(ical.PropDateTimeStart, start)
	comp.Props.SetDateTime(ical.PropDateTimeEnd, end)
	comp.Props.SetText(ical.PropSummary, evt.Title)
	comp.Props.SetText(ical.PropDescription, Description(evt))
	if loc := evt.Location(); loc != "" {
		comp.Props.SetText(ical.PropLocation, loc)
	}

	if evt.URL != "" {
		link := ical.NewProp(ical.PropURL)
		link.Value = evt.URL
		comp.Props.Set(link)
	}

	if email := opts.RepEmails[evt.SalesRep]; email != "" {
		organizer := ical.NewProp(ical.PropOrganizer)
		organizer.Value = "mailto:" + email
		organizer.Params.Set(ical.ParamCommonName, evt.SalesRep)
		comp.Props.Set(organizer)
	}

	comp.Props.SetText(ical.PropStatus, "CONFIRMED")
	seq := ical.NewProp(ical.PropSequence)
	seq.Value = "0"
	comp.Props.Set(seq)
	comp.Props.SetText(ical.PropTransparency, "OPAQUE")

	return comp
}

// Encode writes events as one VCALENDAR to w.
func Encode(w io.Writer, events []*event.Event, opts Options) error {
	cal := NewCalendar()
	cal.Props.SetText(ical.PropMethod, "PUBLISH")
	for _, evt := range events {
		cal.Children = append(cal.Children, NewEvent(evt, opts))
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

// Marshal returns the VCALENDAR for events.
func Marshal(events []*event.Event, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, events, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespace          = regexp.MustCompile(`\s+`)
)

// Filename returns "<date>_<title>.ics" with the title made filesystem safe.
func Filename(evt *event.Event) string {
	name := unsafeFilenameChars.ReplaceAllString(evt.Title, "")
	name = whitespace.ReplaceAllString(strings.TrimSpace(name), "_")
	if r := []rune(name); len(r) > maxFilenameLen {
		name = string(r[:maxFilenameLen])
	}
	if name == "" {
		name = "event"
	}
	date := evt.DateString()
	if date == "" {
		date = "undated"
	}
	return date + "_" + name + ".ics"
}
