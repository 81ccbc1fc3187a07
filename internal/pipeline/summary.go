package pipeline

import (
	"time"

	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
)

// Summary describes one run.
type Summary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	DryRun    bool          `json:"dry_run"`

	GroupsTotal     int      `json:"groups_total"`
	GroupsDuplicate int      `json:"groups_duplicate"`
	GroupsFetched   int      `json:"groups_fetched"`
	GroupsFailed    int      `json:"groups_failed"`
	FailedGroups    []string `json:"failed_groups,omitempty"`

	RecordsScraped   int `json:"records_scraped"`
	RecordsMalformed int `json:"records_malformed"`
	RecordsDuplicate int `json:"records_duplicate"`

	NewEvents      []*event.Event `json:"new_events"`
	LedgerSize     int            `json:"ledger_size"`
	LedgerUpcoming int            `json:"ledger_upcoming"`
	LedgerDone     int            `json:"ledger_done"`

	IntegrationsSucceeded []string           `json:"integrations_succeeded"`
	IntegrationsFailed    []string           `json:"integrations_failed"`
	Integrations          []dispatch.Outcome `json:"integrations,omitempty"`
}

// NewCount returns the size of the delta.
func (s *Summary) NewCount() int {
	return len(s.NewEvents)
}

// Degraded reports whether any group or integration failed.
func (s *Summary) Degraded() bool {
	return s.GroupsFailed > 0 || len(s.IntegrationsFailed) > 0
}
