package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/ledger"
	"github.com/pfrederiksen/meetup-events/internal/logger"
	"github.com/pfrederiksen/meetup-events/internal/reconcile"
	"github.com/pfrederiksen/meetup-events/internal/scraper"
)

// Locker serializes runs against the same ledger. *ledger.Lock satisfies it.
type Locker interface {
	Acquire(ctx context.Context, timeout time.Duration) error
	Release() error
}

// Config controls a run.
type Config struct {
	RunID       string // generated when empty
	Groups      []event.Group
	Concurrency int
	LockTimeout time.Duration
	DryRun      bool // reconcile without saving
}

// Deps are the collaborators of a Pipeline. Lock and Dispatcher are optional.
type Deps struct {
	Store      ledger.Store
	Lock       Locker
	Fetcher    scraper.Fetcher
	Engine     *reconcile.Engine
	Dispatcher *dispatch.Dispatcher
}

// Pipeline runs scrapes.
type Pipeline struct {
	cfg  Config
	deps Deps
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// New creates a Pipeline.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, errors.New("ledger store is required")
	}
	if deps.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("reconcile engine is required")
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = dispatch.New()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = scraper.DefaultConcurrency
	}
	return &Pipeline{cfg: cfg, deps: deps}, nil
}

// Run performs one scrape. The returned error is non-nil only when the run
// aborted; partial failures are reported in the Summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	runID := p.cfg.RunID
	if runID == "" {
		runID = NewRunID()
	}
	summary := &Summary{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		DryRun:    p.cfg.DryRun,
	}
	start := time.Now()
	defer func() {
		summary.Duration = time.Since(start)
		logger.RecordTiming("run", summary.Duration)
	}()

	if p.deps.Lock != nil {
		if err := p.deps.Lock.Acquire(ctx, p.cfg.LockTimeout); err != nil {
			return nil, fmt.Errorf("locking ledger: %w", err)
		}
		defer func() {
			if err := p.deps.Lock.Release(); err != nil {
				logger.Warn("Failed to release ledger lock", logger.Fields{"error": err.Error()})
			}
		}()
	}

	existing, err := p.deps.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	logger.Info("Loaded ledger", logger.Fields{"events": len(existing)})

	scraped := p.scrape(ctx, summary)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	var result *reconcile.Result
	if p.cfg.DryRun {
		result = p.deps.Engine.Preview(existing, scraped)
		logger.Info("Dry run, ledger not saved", logger.Fields{"new_events": len(result.Delta)})
	} else {
		result, err = p.deps.Engine.Reconcile(ctx, existing, scraped)
		if err != nil {
			return nil, err
		}
	}

	summary.RecordsDuplicate = result.Duplicates
	summary.NewEvents = result.Delta
	summary.LedgerSize = len(result.Ledger)
	summary.LedgerUpcoming, summary.LedgerDone = reconcile.Counts(result.Ledger)

	logger.AddCounter("events_new", len(result.Delta))
	logger.SetGauge("ledger_events", float64(summary.LedgerSize))
	logger.SetGauge("ledger_upcoming", float64(summary.LedgerUpcoming))
	logger.SetGauge("ledger_done", float64(summary.LedgerDone))

	logger.Info("Reconciled ledger", logger.Fields{
		"new_events": len(result.Delta),
		"known":      result.Known,
		"duplicates": result.Duplicates,
		"ledger":     summary.LedgerSize,
		"upcoming":   summary.LedgerUpcoming,
		"done":       summary.LedgerDone,
	})

	report := p.deps.Dispatcher.Dispatch(ctx, dispatch.Batch{Delta: result.Delta, Ledger: result.Ledger})
	summary.Integrations = report.Outcomes
	summary.IntegrationsSucceeded = report.Succeeded()
	summary.IntegrationsFailed = report.Failed()

	return summary, nil
}

// scrape fetches every group and normalizes the records. Failed groups and
// malformed records are logged and counted, never returned.
func (p *Pipeline) scrape(ctx context.Context, summary *Summary) []*event.Event {
	groups, dupes := event.DedupeGroups(p.cfg.Groups)
	summary.GroupsTotal = len(groups)
	summary.GroupsDuplicate = dupes
	if dupes > 0 {
		logger.Warn("Ignoring duplicate groups", logger.Fields{"duplicates": dupes})
	}

	fetchStart := time.Now()
	results := scraper.FetchAll(ctx, p.deps.Fetcher, groups, p.cfg.Concurrency)
	logger.RecordTiming("fetch", time.Since(fetchStart))

	var scraped []*event.Event
	for _, res := range results {
		groupURL := res.Group.CanonicalURL()
		if res.Err != nil {
			summary.GroupsFailed++
			summary.FailedGroups = append(summary.FailedGroups, groupURL)
			logger.Warn("Group fetch failed", logger.Fields{
				"group": groupURL,
				"error": res.Err.Error(),
			})
			logger.IncrCounter("groups_failed")
			continue
		}

		summary.GroupsFetched++
		logger.IncrCounter("groups_fetched")
		summary.RecordsScraped += len(res.Records)

		for _, raw := range res.Records {
			evt, err := event.Normalize(raw, res.Group)
			if err != nil {
				summary.RecordsMalformed++
				logMalformed(groupURL, err)
				logger.IncrCounter("records_malformed")
				continue
			}
			scraped = append(scraped, evt)
		}

		logger.Debug("Fetched group", logger.Fields{
			"group":       groupURL,
			"records":     len(res.Records),
			"duration_ms": res.Duration.Milliseconds(),
		})
	}
	return scraped
}

func logMalformed(groupURL string, err error) {
	fields := logger.Fields{"group": groupURL, "error": err.Error()}
	var me *event.MalformedRecordError
	if errors.As(err, &me) {
		fields["url"] = me.URL
		fields["field"] = me.Field
	}
	logger.Warn("Skipping malformed record", fields)
}
