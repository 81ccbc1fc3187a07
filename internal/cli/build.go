package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/pfrederiksen/meetup-events/internal/caldav"
	"github.com/pfrederiksen/meetup-events/internal/calendar"
	"github.com/pfrederiksen/meetup-events/internal/config"
	"github.com/pfrederiksen/meetup-events/internal/crypto"
	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/google"
	"github.com/pfrederiksen/meetup-events/internal/ledger"
	"github.com/pfrederiksen/meetup-events/internal/logger"
	"github.com/pfrederiksen/meetup-events/internal/notifier"
	"github.com/pfrederiksen/meetup-events/internal/reconcile"
)

// newStore opens the configured ledger backend.
func newStore(cfg *config.Config) (ledger.Store, error) {
	switch cfg.Ledger.Backend {
	case config.BackendGist:
		return ledger.NewGistStore(cfg.Ledger.GistID, cfg.Ledger.GithubToken)
	default:
		return ledger.NewFileStore(cfg.Ledger.Path)
	}
}

// newLock returns the lock guarding the configured ledger.
func newLock(cfg *config.Config) (*ledger.Lock, error) {
	path, err := ledger.ExpandPath(cfg.Ledger.LockFile())
	if err != nil {
		return nil, err
	}
	return ledger.NewLock(path)
}

// withLedger loads the ledger under its lock and calls fn with the events.
// Statuses are recomputed for today in loc first, so events that passed since
// the last run are DONE. The recomputed statuses are not saved.
func withLedger(ctx context.Context, cfg *config.Config, loc *time.Location, fn func(events []*event.Event) error) error {
	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	lock, err := newLock(cfg)
	if err != nil {
		return err
	}
	if err := lock.Acquire(ctx, cfg.Ledger.LockTimeout); err != nil {
		return fmt.Errorf("locking ledger: %w", err)
	}
	defer lock.Release() // nolint:errcheck

	events, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}
	reconcile.Recompute(events, reconcile.Today(time.Now(), loc))
	return fn(events)
}

// calendarOptions renders events in the configured zone.
func calendarOptions(cfg *config.Config, loc *time.Location, hours float64) calendar.Options {
	return calendar.Options{
		Location:  loc,
		Duration:  config.Hours(hours),
		RepEmails: cfg.RepEmailsByRep(),
	}
}

// failedIntegration stands in for an integration that could not be set up,
// so the problem is reported with the other integration outcomes instead of
// aborting the run.
type failedIntegration struct {
	name string
	err  error
}

func (f *failedIntegration) Name() string { return f.name }

func (f *failedIntegration) Dispatch(ctx context.Context, batch dispatch.Batch) error {
	return fmt.Errorf("not configured: %w", f.err)
}

func setupFailed(name string, err error) dispatch.Integration {
	logger.Warn("Integration setup failed", logger.Fields{
		"integration": name,
		"error":       err.Error(),
	})
	return &failedIntegration{name: name, err: err}
}

// newIntegrations builds every enabled integration in dispatch order: chat
// notifiers first, then calendars, then the sheet mirror. A dry run only
// prints the delta to out.
func newIntegrations(ctx context.Context, cfg *config.Config, loc *time.Location, dryRun bool, out io.Writer) []dispatch.Integration {
	if dryRun {
		return []dispatch.Integration{notifier.AsIntegration("dry_run", notifier.NewDryRunNotifier(out))}
	}

	var integrations []dispatch.Integration
	add := func(name string, in dispatch.Integration, err error) {
		if err != nil {
			integrations = append(integrations, setupFailed(name, err))
			return
		}
		integrations = append(integrations, in)
	}

	if cfg.Slack.Enabled {
		n, err := notifier.NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.MaxEvents)
		add("slack", notifier.AsIntegration("slack", n), err)
	}
	if cfg.Telegram.Enabled {
		n, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		add("telegram", notifier.AsIntegration("telegram", n), err)
	}
	if cfg.Twitter.Enabled {
		n, err := notifier.NewTwitterNotifier(cfg.Twitter.TwitterCredentials)
		add("twitter", notifier.AsIntegration("twitter", n), err)
	}
	if cfg.Calendar.Enabled {
		w, err := calendar.NewFileWriter(cfg.Calendar.OutputDir, calendarOptions(cfg, loc, cfg.Calendar.DefaultDurationHours))
		add("calendar", w, err)
	}
	if cfg.GoogleCalendar.Enabled {
		s, err := newGoogleCalendarSync(ctx, cfg, loc)
		add("google_calendar", s, err)
	}
	if cfg.CalDAV.Enabled {
		s, err := newCalDAVSync(cfg, loc)
		add("caldav", s, err)
	}
	if cfg.GoogleSheets.Enabled {
		s, err := newSheetsSync(ctx, cfg)
		add("google_sheets", s, err)
	}

	return integrations
}

func newGoogleCalendarService(ctx context.Context, cfg *config.Config) (*gcal.Service, error) {
	oauthCfg, err := google.LoadOAuthConfig(cfg.GoogleCalendar.CredentialsPath, google.CalendarScope)
	if err != nil {
		return nil, err
	}
	store, err := google.NewTokenStore(cfg.GoogleCalendar.TokenPath, crypto.NewEncryptor(cfg.GoogleCalendar.TokenKey))
	if err != nil {
		return nil, err
	}
	client, err := google.HTTPClient(ctx, oauthCfg, store)
	if err != nil {
		return nil, err
	}
	return google.NewCalendarService(ctx, client)
}

func newGoogleCalendarSync(ctx context.Context, cfg *config.Config, loc *time.Location) (*google.CalendarSync, error) {
	svc, err := newGoogleCalendarService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return google.NewCalendarSync(svc, cfg.GoogleCalendar.StatePath, google.CalendarOptions{
		CalendarID:  cfg.GoogleCalendar.CalendarID,
		SendInvites: cfg.GoogleCalendar.SendInvites,
		RepEmails:   cfg.RepEmailsByRep(),
		Location:    loc,
		Duration:    config.Hours(cfg.GoogleCalendar.DefaultDurationHours),
	})
}

func newCalDAVSync(cfg *config.Config, loc *time.Location) (*caldav.Sync, error) {
	client, err := caldav.NewClient(caldav.Config{
		Endpoint:     cfg.CalDAV.Endpoint,
		Username:     cfg.CalDAV.Username,
		Password:     cfg.CalDAV.Password,
		CalendarName: cfg.CalDAV.CalendarName,
	})
	if err != nil {
		return nil, err
	}
	return caldav.NewSync(client, cfg.CalDAV.CalendarName, cfg.CalDAV.StatePath,
		calendarOptions(cfg, loc, cfg.CalDAV.DefaultDurationHours))
}

func newSheetsSync(ctx context.Context, cfg *config.Config) (*google.SheetsSync, error) {
	svc, err := google.NewSheetsService(ctx, cfg.GoogleSheets.CredentialsPath)
	if err != nil {
		return nil, err
	}
	return google.NewSheetsSync(svc, cfg.GoogleSheets.SpreadsheetID, cfg.GoogleSheets.WorksheetName)
}
