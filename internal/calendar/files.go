package calendar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/meetup-events/internal/dispatch"
	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/ledger"
	"github.com/pfrederiksen/meetup-events/internal/logger"
)

// FileWriter writes one .ics file per new event.
type FileWriter struct {
	dir  string
	opts Options
}

// NewFileWriter creates a FileWriter that writes into dir.
func NewFileWriter(dir string, opts Options) (*FileWriter, error) {
	if dir == "" {
		return nil, errors.New("calendar output directory is required")
	}
	expanded, err := ledger.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	return &FileWriter{dir: expanded, opts: opts}, nil
}

// Name returns the integration name.
func (w *FileWriter) Name() string {
	return "calendar"
}

// Dir returns the output directory.
func (w *FileWriter) Dir() string {
	return w.dir
}

// Dispatch writes a file for every event in the delta.
func (w *FileWriter) Dispatch(ctx context.Context, batch dispatch.Batch) error {
	events := event.Upcoming(batch.Delta)
	if len(events) == 0 {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("creating calendar directory: %w", err)
	}

	var errs []error
	used := make(map[string]int)
	written := 0
	for _, evt := range events {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		name := uniqueName(Filename(evt), used)
		if err := w.write(evt, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", evt.URL, err))
			continue
		}
		written++
	}

	logger.Info("Wrote calendar files", logger.Fields{
		"dir":     w.dir,
		"written": written,
	})
	return errors.Join(errs...)
}

func (w *FileWriter) write(evt *event.Event, name string) error {
	data, err := Marshal([]*event.Event{evt}, w.opts)
	if err != nil {
		return err
	}
	return ledger.WriteFileAtomic(filepath.Join(w.dir, name), data, 0644)
}

// uniqueName suffixes repeated names within one batch.
func uniqueName(name string, used map[string]int) string {
	used[name]++
	if n := used[name]; n > 1 {
		return fmt.Sprintf("%s_%d.ics", strings.TrimSuffix(name, ".ics"), n)
	}
	return name
}
