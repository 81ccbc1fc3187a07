package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/logger"
)

// Batch is what every integration receives.
type Batch struct {
	Delta  []*event.Event // first seen in this run, in scrape order
	Ledger []*event.Event // full ledger, sorted by date; read-only
}

// Integration is a downstream consumer of a run's results.
type Integration interface {
	Name() string
	Dispatch(ctx context.Context, batch Batch) error
}

// IntegrationError reports a failed integration. It never affects the ledger.
type IntegrationError struct {
	Integration string
	Err         error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration %s: %v", e.Integration, e.Err)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// Outcome records how one integration fared.
type Outcome struct {
	Integration string        `json:"integration"`
	Err         error         `json:"-"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// OK reports whether the integration succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report summarizes a dispatch.
type Report struct {
	Outcomes []Outcome
}

// Succeeded returns the names of integrations that succeeded.
func (r *Report) Succeeded() []string {
	names := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.OK() {
			names = append(names, o.Integration)
		}
	}
	return names
}

// Failed returns the names of integrations that failed.
func (r *Report) Failed() []string {
	names := make([]string, 0)
	for _, o := range r.Outcomes {
		if !o.OK() {
			names = append(names, o.Integration)
		}
	}
	return names
}

// Dispatcher runs integrations in registration order.
type Dispatcher struct {
	integrations []Integration
}

// New creates a Dispatcher for integrations. Nil entries are skipped.
func New(integrations ...Integration) *Dispatcher {
	d := &Dispatcher{}
	for _, in := range integrations {
		d.Add(in)
	}
	return d
}

// Add registers an integration.
func (d *Dispatcher) Add(in Integration) {
	if in != nil {
		d.integrations = append(d.integrations, in)
	}
}

// Len returns the number of registered integrations.
func (d *Dispatcher) Len() int {
	return len(d.integrations)
}

// Dispatch runs every integration with batch and reports each outcome.
// Failures, including panics, are contained per integration.
func (d *Dispatcher) Dispatch(ctx context.Context, batch Batch) *Report {
	report := &Report{Outcomes: make([]Outcome, 0, len(d.integrations))}

	for _, in := range d.integrations {
		start := time.Now()
		err := d.run(ctx, in, batch)
		outcome := Outcome{
			Integration: in.Name(),
			Duration:    time.Since(start),
		}

		if err != nil {
			outcome.Err = &IntegrationError{Integration: in.Name(), Err: err}
			outcome.Error = err.Error()
			logger.Warn("Integration failed", logger.Fields{
				"integration": in.Name(),
				"error":       err.Error(),
			})
			logger.IncrCounter("integrations_failed")
		} else {
			logger.Info("Integration completed", logger.Fields{
				"integration": in.Name(),
				"delta":       len(batch.Delta),
				"duration_ms": outcome.Duration.Milliseconds(),
			})
			logger.IncrCounter("integrations_succeeded")
		}
		logger.RecordTiming("integration_"+in.Name(), outcome.Duration)

		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report
}

func (d *Dispatcher) run(ctx context.Context, in Integration, batch Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return in.Dispatch(ctx, batch)
}
