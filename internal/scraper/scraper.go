package scraper

import (
	"bytes"
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/meetup-events/internal/event"
	"github.com/pfrederiksen/meetup-events/internal/logger"
)

// DefaultConcurrency is the number of groups fetched at once.
const DefaultConcurrency = 4

// Fetcher returns the raw event records listed by a group.
type Fetcher interface {
	Fetch(ctx context.Context, group event.Group) ([]event.RawRecord, error)
}

// Scraper fetches Meetup group pages through a Renderer
type Scraper struct {
	renderer Renderer
}

// New creates a Scraper that renders pages with r.
func New(r Renderer) *Scraper {
	return &Scraper{renderer: r}
}

// Fetch renders the group's events page and extracts its records. A page
// without page data is logged and yields no records; every other failure is
// a *FetchError.
func (s *Scraper) Fetch(ctx context.Context, group event.Group) ([]event.RawRecord, error) {
	pageURL := group.EventsPageURL()

	html, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, &FetchError{GroupURL: group.CanonicalURL(), Err: err}
	}

	records, err := Extract(bytes.NewReader(html), group.Slug())
	if errors.Is(err, ErrNoPageData) {
		logger.Warn("No event data on group page", logger.Fields{
			"group": group.CanonicalURL(),
			"page":  pageURL,
		})
		return []event.RawRecord{}, nil
	}
	if err != nil {
		return nil, &FetchError{GroupURL: group.CanonicalURL(), Err: err}
	}
	return records, nil
}

// GroupResult is the outcome of fetching one group.
type GroupResult struct {
	Group    event.Group
	Records  []event.RawRecord
	Err      error
	Duration time.Duration
}

// FetchAll fetches every group with at most concurrency fetches in flight.
// Results are returned in the order of groups regardless of completion
// order. A failed group has Err set and no records; it never stops the
// others.
func FetchAll(ctx context.Context, f Fetcher, groups []event.Group, concurrency int) []GroupResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]GroupResult, len(groups))
	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for i, group := range groups {
		g.Go(func() error {
			start := time.Now()
			records, err := f.Fetch(ctx, group)
			if err != nil {
				var fe *FetchError
				if !errors.As(err, &fe) {
					err = &FetchError{GroupURL: group.CanonicalURL(), Err: err}
				}
				records = nil
			}
			results[i] = GroupResult{
				Group:    group,
				Records:  records,
				Err:      err,
				Duration: time.Since(start),
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
