package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pfrederiksen/meetup-events/internal/calendar"
	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/ledger"
	"github.com/pfrederiksen/meetup-events/internal/logger"
)

// CalendarScope is the OAuth scope needed to create and delete events.
const CalendarScope = gcal.CalendarEventsScope

// NewCalendarService builds a Calendar API client for an authorized HTTP client.
func NewCalendarService(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*gcal.Service, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return svc, nil
}

// CalendarOptions configure CalendarSync.
type CalendarOptions struct {
	CalendarID  string
	SendInvites bool
	RepEmails   map[string]string
	Location    *time.Location
	Duration    time.Duration
}

// CalendarSync inserts upcoming ledger events into a Google Calendar, inviting
// the group's sales rep. Created event IDs are kept in a sidecar state so each
// event is inserted once.
type CalendarSync struct {
	svc       *gcal.Service
	statePath string
	opts      CalendarOptions
}

// SyncResult counts what a sync did.
type SyncResult struct {
	Created       int `json:"created"`
	AlreadySynced int `json:"already_synced"`
	NoEmail       int `json:"no_email"`
	Failed        int `json:"failed"`
}

// ResetResult counts what a reset did.
type ResetResult struct {
	Deleted int `json:"deleted"`
	Cleared int `json:"cleared"`
	Failed  int `json:"failed"`
}

// NewCalendarSync creates a CalendarSync.
func NewCalendarSync(svc *gcal.Service, statePath string, opts CalendarOptions) (*CalendarSync, error) {
	if svc == nil {
		return nil, errors.New("calendar service is required")
	}
	if statePath == "" {
		return nil, errors.New("google calendar state path is required")
	}
	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Duration <= 0 {
		opts.Duration = calendar.DefaultDuration
	}
	return &CalendarSync{svc: svc, statePath: statePath, opts: opts}, nil
}

// Name returns the integration name.
func (s *CalendarSync) Name() string {
	return "google_calendar"
}

// Dispatch syncs the whole ledger, not just the delta, so events whose
// insert failed earlier are retried.
func (s *CalendarSync) Dispatch(ctx context.Context, batch dispatch.Batch) error {
	_, err := s.Sync(ctx, batch.Ledger)
	return err
}

// Sync inserts every UPCOMING event without a marker whose rep has an email.
func (s *CalendarSync) Sync(ctx context.Context, events []*event.Event) (*SyncResult, error) {
	state, err := calendar.LoadState(s.statePath)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{}
	var errs []error
	sendUpdates := "none"
	if s.opts.SendInvites {
		sendUpdates = "all"
	}

	for _, evt := range events {
		if !evt.IsUpcoming() || !evt.HasDate() {
			continue
		}
		if state.Has(evt.URL) {
			res.AlreadySynced++
			continue
		}
		email := s.opts.RepEmails[evt.SalesRep]
		if email == "" {
			res.NoEmail++
			logger.Debug("No email for sales rep, skipping event", logger.Fields{
				"url":       evt.URL,
				"sales_rep": evt.SalesRep,
			})
			continue
		}

		created, err := s.svc.Events.Insert(s.opts.CalendarID, s.newEvent(evt, email)).
			SendUpdates(sendUpdates).
			Context(ctx).
			Do()
		if err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("inserting %s: %w", evt.URL, err))
			continue
		}
		state.Set(evt.URL, created.Id)
		res.Created++
	}

	if res.Created > 0 {
		if err := state.Save(); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Info("Google Calendar sync finished", logger.Fields{
		"created":        res.Created,
		"already_synced": res.AlreadySynced,
		"no_email":       res.NoEmail,
		"failed":         res.Failed,
	})
	return res, errors.Join(errs...)
}

func (s *CalendarSync) newEvent(evt *event.Event, email string) *gcal.Event {
	start, end := calendar.Window(evt, calendar.Options{Location: s.opts.Location, Duration: s.opts.Duration})
	tz := s.opts.Location.String()

	description := fmt.Sprintf("Sales Rep: %s\nGroup: %s\n\n", evt.SalesRep, evt.GroupName)
	if evt.Description != "" {
		description += evt.Description + "\n\n"
	}
	description += "Event URL: " + evt.URL

	return &gcal.Event{
		Summary:     evt.Title,
		Location:    evt.Location(),
		Description: description,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: tz},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: tz},
		Source:      &gcal.EventSource{Title: evt.GroupName, Url: evt.URL},
		Attendees: []*gcal.EventAttendee{
			{Email: email, DisplayName: evt.SalesRep},
		},
	}
}

// Reset deletes every synced event that is still UPCOMING in the ledger and
// clears the markers. With skipDelete only the markers are cleared. Markers
// whose delete fails are kept so a later reset can retry.
func (s *CalendarSync) Reset(ctx context.Context, events []*event.Event, skipDelete bool) (*ResetResult, error) {
	state, err := calendar.LoadState(s.statePath)
	if err != nil {
		return nil, err
	}

	index := ledger.IndexByURL(events)
	res := &ResetResult{}
	var errs []error

	for _, url := range state.URLs() {
		id, _ := state.Get(url)
		evt := index[url]
		if !skipDelete && evt != nil && evt.IsUpcoming() && id != "" {
			err := s.svc.Events.Delete(s.opts.CalendarID, id).Context(ctx).Do()
			if err != nil && !isGone(err) {
				res.Failed++
				errs = append(errs, fmt.Errorf("deleting %s: %w", url, err))
				continue
			}
			res.Deleted++
		}
		state.Delete(url)
		res.Cleared++
	}

	if err := state.Save(); err != nil {
		errs = append(errs, err)
	}

	logger.Info("Google Calendar reset finished", logger.Fields{
		"deleted":     res.Deleted,
		"cleared":     res.Cleared,
		"failed":      res.Failed,
		"skip_delete": skipDelete,
	})
	return res, errors.Join(errs...)
}

// isGone reports whether err means the calendar event no longer exists.
func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}
