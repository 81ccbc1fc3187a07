package caldav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/pfrederiksen/meetup-events/internal/calendar"
	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/logger"
)

const requestTimeout = 30 * time.Second

// Client is the part of a CalDAV client used by Sync. *caldav.Client
// satisfies it.
type Client interface {
	FindCurrentUserPrincipal(ctx context.Context) (string, error)
	FindCalendarHomeSet(ctx context.Context, principal string) (string, error)
	FindCalendars(ctx context.Context, calendarHomeSet string) ([]caldav.Calendar, error)
	PutCalendarObject(ctx context.Context, path string, cal *ical.Calendar) (*caldav.CalendarObject, error)
}

// Config holds CalDAV connection settings.
type Config struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string // empty selects the first calendar
}

// NewClient connects to endpoint with HTTP basic auth.
func NewClient(cfg Config) (*caldav.Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("caldav endpoint is required")
	}
	httpClient := webdav.HTTPClientWithBasicAuth(&http.Client{Timeout: requestTimeout}, cfg.Username, cfg.Password)
	client, err := caldav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("creating caldav client: %w", err)
	}
	return client, nil
}

// Sync PUTs every UPCOMING ledger event not yet pushed as "<uid>.ics" into
// the configured calendar. Pushed object paths are recorded in a sidecar
// state.
type Sync struct {
	client       Client
	calendarName string
	statePath    string
	opts         calendar.Options

	calendarPath string
}

// NewSync creates a Sync.
func NewSync(client Client, calendarName, statePath string, opts calendar.Options) (*Sync, error) {
	if client == nil {
		return nil, errors.New("caldav client is required")
	}
	if statePath == "" {
		return nil, errors.New("caldav state path is required")
	}
	return &Sync{client: client, calendarName: calendarName, statePath: statePath, opts: opts}, nil
}

// Name returns the integration name.
func (s *Sync) Name() string {
	return "caldav"
}

// Dispatch pushes the ledger's unsynced upcoming events.
func (s *Sync) Dispatch(ctx context.Context, batch dispatch.Batch) error {
	_, err := s.Push(ctx, batch.Ledger)
	return err
}

// Push uploads unsynced UPCOMING events and returns how many were created.
func (s *Sync) Push(ctx context.Context, events []*event.Event) (int, error) {
	state, err := calendar.LoadState(s.statePath)
	if err != nil {
		return 0, err
	}

	var pending []*event.Event
	for _, evt := range events {
		if evt.IsUpcoming() && evt.HasDate() && !state.Has(evt.URL) {
			pending = append(pending, evt)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	calPath, err := s.findCalendar(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	created := 0
	for _, evt := range pending {
		objPath := path.Join(calPath, ObjectName(evt))
		obj, err := s.client.PutCalendarObject(ctx, objPath, calendar.NewObject(evt, s.opts))
		if err != nil {
			errs = append(errs, fmt.Errorf("putting %s: %w", evt.URL, err))
			continue
		}
		if obj != nil && obj.Path != "" {
			objPath = obj.Path
		}
		state.Set(evt.URL, objPath)
		created++
	}

	if created > 0 {
		if err := state.Save(); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Info("CalDAV sync finished", logger.Fields{
		"calendar": calPath,
		"created":  created,
		"failed":   len(pending) - created,
	})
	return created, errors.Join(errs...)
}

// ObjectName is the resource name an event is stored under.
func ObjectName(evt *event.Event) string {
	return calendar.UID(evt.URL) + ".ics"
}

// findCalendar resolves the calendar collection path once per Sync.
func (s *Sync) findCalendar(ctx context.Context) (string, error) {
	if s.calendarPath != "" {
		return s.calendarPath, nil
	}

	principal, err := s.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("finding principal: %w", err)
	}
	homeSet, err := s.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("finding calendar home set: %w", err)
	}
	calendars, err := s.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("listing calendars: %w", err)
	}
	if len(calendars) == 0 {
		return "", errors.New("no calendars found")
	}

	if s.calendarName == "" {
		s.calendarPath = calendars[0].Path
		return s.calendarPath, nil
	}
	for _, cal := range calendars {
		if strings.EqualFold(cal.Name, s.calendarName) {
			s.calendarPath = cal.Path
			return s.calendarPath, nil
		}
	}
	return "", fmt.Errorf("calendar %q not found", s.calendarName)
}
