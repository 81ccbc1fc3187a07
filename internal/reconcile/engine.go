package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/ledger"
)

// Engine reconciles scraped events against a ledger store.
type Engine struct {
	store ledger.Store
	loc   *time.Location
	now   func() time.Time
}

// NewEngine creates an Engine that persists to store and evaluates run dates
// in loc.
func NewEngine(store ledger.Store, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store: store,
		loc:   loc,
		now:   time.Now,
	}
}

// WithClock replaces the engine's clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Today returns the engine's current run date.
func (e *Engine) Today() time.Time {
	return Today(e.now(), e.loc)
}

// Reconcile merges scraped into existing and saves the new ledger. existing
// must be the ledger loaded at the start of the run. The delta is returned
// only once the save has succeeded.
func (e *Engine) Reconcile(ctx context.Context, existing, scraped []*event.Event) (*Result, error) {
	result := Merge(existing, scraped, e.Today())

	if err := e.store.Save(ctx, result.Ledger); err != nil {
		return nil, fmt.Errorf("saving ledger: %w", err)
	}
	return result, nil
}

// Preview merges like Reconcile without saving.
func (e *Engine) Preview(existing, scraped []*event.Event) *Result {
	return Merge(existing, scraped, e.Today())
}
