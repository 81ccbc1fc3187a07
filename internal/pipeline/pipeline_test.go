package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/ledger"
	"github.com/pfrederiksen/meetup-events/internal/logger"
	"github.com/pfrederiksen/meetup-events/internal/reconcile"
	"github.com/pfrederiksen/meetup-events/internal/scraper"
)

var runTime = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

type memStore struct {
	mu      sync.Mutex
	events  []*event.Event
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(ctx context.Context) ([]*event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events, m.loadErr
}

func (m *memStore) Save(ctx context.Context, events []*event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.events = events
	return nil
}

// fakeFetcher serves canned records per group URL.
type fakeFetcher struct {
	records map[string][]event.RawRecord
	errs    map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, group event.Group) ([]event.RawRecord, error) {
	if err := f.errs[group.CanonicalURL()]; err != nil {
		return nil, err
	}
	return f.records[group.CanonicalURL()], nil
}

type fakeLock struct {
	acquireErr error
	acquired   int
	released   int
}

func (l *fakeLock) Acquire(ctx context.Context, timeout time.Duration) error {
	if l.acquireErr != nil {
		return l.acquireErr
	}
	l.acquired++
	return nil
}

func (l *fakeLock) Release() error {
	l.released++
	return nil
}

type recordingIntegration struct {
	name    string
	batches []dispatch.Batch
	err     error
}

func (r *recordingIntegration) Name() string { return r.name }

func (r *recordingIntegration) Dispatch(ctx context.Context, batch dispatch.Batch) error {
	r.batches = append(r.batches, batch)
	return r.err
}

func record(id, date string) event.RawRecord {
	return event.RawRecord{
		event.FieldTitle:     "Event " + id,
		event.FieldURL:       "https://www.meetup.com/go-austin/events/" + id + "/",
		event.FieldDateTime:  date + "T18:30:00-05:00",
		event.FieldVenueName: "Capital Factory",
		event.FieldGroupName: "Go Austin",
	}
}

const (
	goAustin   = "https://www.meetup.com/go-austin"
	rustAustin = "https://www.meetup.com/rust-austin"
)

func testGroups() []event.Group {
	return []event.Group{
		{URL: goAustin, SalesRep: "alice"},
		{URL: rustAustin, SalesRep: "bob"},
		{URL: "meetup.com/go-austin", SalesRep: "carol"}, // duplicate of the first
	}
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Default()
	logger.SetDefault(logger.FromZap(zap.New(core)))
	t.Cleanup(func() { logger.SetDefault(prev) })
	return logs
}

func newTestPipeline(t *testing.T, cfg Config, store ledger.Store, f scraper.Fetcher, lock Locker, integrations ...dispatch.Integration) *Pipeline {
	t.Helper()
	engine := reconcile.NewEngine(store, time.UTC).WithClock(func() time.Time { return runTime })
	p, err := New(cfg, Deps{
		Store:      store,
		Lock:       lock,
		Fetcher:    f,
		Engine:     engine,
		Dispatcher: dispatch.New(integrations...),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return p
}

func TestRun_EndToEnd(t *testing.T) {
	logs := observeLogs(t)

	store := &memStore{events: []*event.Event{{
		Title:    "Old meetup",
		Date:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		URL:      "https://www.meetup.com/go-austin/events/old/",
		GroupURL: goAustin,
		SalesRep: "alice",
		Status:   event.StatusUpcoming,
	}}}

	malformed := record("bad", "2025-07-01")
	delete(malformed, event.FieldTitle)

	fetcher := &fakeFetcher{
		records: map[string][]event.RawRecord{
			goAustin: {record("1", "2025-07-01"), record("2", "2025-07-08"), record("1", "2025-07-01"), malformed},
		},
		errs: map[string]error{rustAustin: errors.New("status 502")},
	}
	lock := &fakeLock{}
	slack := &recordingIntegration{name: "slack"}
	broken := &recordingIntegration{name: "sheets", err: errors.New("quota exceeded")}

	p := newTestPipeline(t, Config{RunID: "run-1", Groups: testGroups(), Concurrency: 2}, store, fetcher, lock, slack, broken)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if lock.acquired != 1 || lock.released != 1 {
		t.Errorf("lock acquired %d released %d, want 1 and 1", lock.acquired, lock.released)
	}
	if summary.RunID != "run-1" {
		t.Errorf("RunID = %q", summary.RunID)
	}
	if summary.GroupsTotal != 2 || summary.GroupsDuplicate != 1 {
		t.Errorf("groups total %d duplicate %d, want 2 and 1", summary.GroupsTotal, summary.GroupsDuplicate)
	}
	if summary.GroupsFetched != 1 || summary.GroupsFailed != 1 || len(summary.FailedGroups) != 1 || summary.FailedGroups[0] != rustAustin {
		t.Errorf("fetched %d failed %d %v", summary.GroupsFetched, summary.GroupsFailed, summary.FailedGroups)
	}
	if summary.RecordsScraped != 4 || summary.RecordsMalformed != 1 || summary.RecordsDuplicate != 1 {
		t.Errorf("records scraped %d malformed %d duplicate %d", summary.RecordsScraped, summary.RecordsMalformed, summary.RecordsDuplicate)
	}
	if summary.NewCount() != 2 {
		t.Errorf("NewCount() = %d, want 2", summary.NewCount())
	}
	if summary.LedgerSize != 3 || summary.LedgerUpcoming != 2 || summary.LedgerDone != 1 {
		t.Errorf("ledger %d upcoming %d done %d, want 3 2 1", summary.LedgerSize, summary.LedgerUpcoming, summary.LedgerDone)
	}
	if len(summary.IntegrationsSucceeded) != 1 || len(summary.IntegrationsFailed) != 1 || summary.IntegrationsFailed[0] != "sheets" {
		t.Errorf("integrations ok %v failed %v", summary.IntegrationsSucceeded, summary.IntegrationsFailed)
	}
	if !summary.Degraded() {
		t.Error("Degraded() = false with a failed group")
	}

	if store.saves != 1 || len(store.events) != 3 {
		t.Errorf("saves %d, saved %d events", store.saves, len(store.events))
	}
	for _, evt := range store.events {
		if evt.URL == "https://www.meetup.com/go-austin/events/1/" && evt.SalesRep != "alice" {
			t.Errorf("new event sales rep = %q, want alice", evt.SalesRep)
		}
	}

	if len(slack.batches) != 1 || len(slack.batches[0].Delta) != 2 || len(slack.batches[0].Ledger) != 3 {
		t.Errorf("slack batches = %+v", slack.batches)
	}

	if n := logs.FilterMessage("Group fetch failed").FilterField(zap.String("group", rustAustin)).Len(); n != 1 {
		t.Errorf("group failure warnings = %d, want 1", n)
	}
	if n := logs.FilterMessage("Skipping malformed record").FilterField(zap.String("field", event.FieldTitle)).Len(); n != 1 {
		t.Errorf("malformed record warnings = %d, want 1", n)
	}
	if n := logs.FilterMessage("Integration failed").Len(); n != 1 {
		t.Errorf("integration failure warnings = %d, want 1", n)
	}

	// A second run with the same pages finds nothing new.
	summary, err = p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if summary.NewCount() != 0 || summary.LedgerSize != 3 {
		t.Errorf("second run new %d ledger %d, want 0 and 3", summary.NewCount(), summary.LedgerSize)
	}
	if len(slack.batches) != 2 || len(slack.batches[1].Delta) != 0 {
		t.Error("integrations should still receive the ledger with an empty delta")
	}
}

func TestRun_DryRunDoesNotSave(t *testing.T) {
	store := &memStore{}
	fetcher := &fakeFetcher{records: map[string][]event.RawRecord{goAustin: {record("1", "2025-07-01")}}}

	p := newTestPipeline(t, Config{Groups: testGroups()[:1], DryRun: true}, store, fetcher, nil)
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !summary.DryRun || summary.NewCount() != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if store.saves != 0 {
		t.Errorf("dry run saved the ledger %d times", store.saves)
	}
	if summary.RunID == "" {
		t.Error("RunID not generated")
	}
}

func TestRun_Aborts(t *testing.T) {
	corrupt := &ledger.CorruptError{Path: "events.csv", Line: 3, Err: errors.New("bad date")}

	tests := []struct {
		name    string
		store   *memStore
		lock    *fakeLock
		wantErr error
	}{
		{"corrupt ledger", &memStore{loadErr: corrupt}, &fakeLock{}, corrupt},
		{"lock held", &memStore{}, &fakeLock{acquireErr: ledger.ErrLocked}, ledger.ErrLocked},
		{"save fails", &memStore{saveErr: errors.New("disk full")}, &fakeLock{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{records: map[string][]event.RawRecord{goAustin: {record("1", "2025-07-01")}}}
			integration := &recordingIntegration{name: "slack"}
			p := newTestPipeline(t, Config{Groups: testGroups()[:1]}, tt.store, fetcher, tt.lock, integration)

			summary, err := p.Run(context.Background())
			if err == nil {
				t.Fatal("Run() should abort")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if summary != nil {
				t.Error("aborted Run() returned a summary")
			}
			if len(integration.batches) != 0 {
				t.Error("integrations ran after an abort")
			}
			if tt.lock.acquired != tt.lock.released {
				t.Errorf("lock acquired %d released %d", tt.lock.acquired, tt.lock.released)
			}
		})
	}
}

func TestRun_FileStore(t *testing.T) {
	store, err := ledger.NewFileStore(filepath.Join(t.TempDir(), "events.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lock, err := ledger.NewLock(store.Path() + ".lock")
	if err != nil {
		t.Fatal(err)
	}
	fetcher := &fakeFetcher{records: map[string][]event.RawRecord{goAustin: {record("1", "2025-07-01"), record("2", "2025-06-01")}}}

	p := newTestPipeline(t, Config{Groups: testGroups()[:1], LockTimeout: time.Second}, store, fetcher, lock)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	saved, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved %d events, want 2", len(saved))
	}
	if saved[0].Status != event.StatusDone || saved[1].Status != event.StatusUpcoming {
		t.Errorf("statuses = %s, %s; want DONE, UPCOMING", saved[0].Status, saved[1].Status)
	}
}

func TestNew_Validation(t *testing.T) {
	store := &memStore{}
	engine := reconcile.NewEngine(store, time.UTC)
	fetcher := &fakeFetcher{}

	if _, err := New(Config{}, Deps{Fetcher: fetcher, Engine: engine}); err == nil {
		t.Error("New() should require a store")
	}
	if _, err := New(Config{}, Deps{Store: store, Engine: engine}); err == nil {
		t.Error("New() should require a fetcher")
	}
	if _, err := New(Config{}, Deps{Store: store, Fetcher: fetcher}); err == nil {
		t.Error("New() should require an engine")
	}
}
