package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/ledger"
	"github.com/pfrederiksen/meetup-events/internal/logger"
)

// ExportResult describes a combined export.
type ExportResult struct {
	Path     string         `json:"path"`
	Exported []*event.Event `json:"exported"`
	Skipped  int            `json:"skipped"` // already exported
}

// Export writes every dated UPCOMING event not yet marked in state to a single
// calendar at path and marks them. Nothing is written when there is nothing
// new to export.
func Export(events []*event.Event, state *State, path string, opts Options) (*ExportResult, error) {
	opts = opts.withDefaults()
	path, err := ledger.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	res := &ExportResult{Path: path}

	for _, evt := range events {
		if !evt.IsUpcoming() || !evt.HasDate() {
			continue
		}
		if state.Has(evt.URL) {
			res.Skipped++
			continue
		}
		res.Exported = append(res.Exported, evt)
	}

	if len(res.Exported) == 0 {
		logger.Info("No new events to export", logger.Fields{"skipped": res.Skipped})
		return res, nil
	}

	data, err := Marshal(res.Exported, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	if err := ledger.WriteFileAtomic(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing calendar export: %w", err)
	}

	stamp := opts.Now().UTC().Format(time.RFC3339)
	for _, evt := range res.Exported {
		state.Set(evt.URL, stamp)
	}
	if err := state.Save(); err != nil {
		return nil, err
	}

	logger.Info("Exported calendar", logger.Fields{
		"path":     path,
		"exported": len(res.Exported),
		"skipped":  res.Skipped,
	})
	return res, nil
}
