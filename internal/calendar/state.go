package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pfrederiksen/meetup-events/internal/ledger"
)

// State maps event URLs to an integration-specific marker: an export
// timestamp, a Google Calendar event ID, or a CalDAV object path. It lives
// beside the ledger, never inside it.
type State struct {
	path    string
	markers map[string]string
}

// LoadState reads the sidecar state at path. A missing file is an empty state.
func LoadState(path string) (*State, error) {
	expanded, err := ledger.ExpandPath(path)
	if err != nil {
		return nil, err
	}

	s := &State{path: expanded, markers: make(map[string]string)}

	data, err := os.ReadFile(expanded)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sync state: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.markers); err != nil {
		return nil, fmt.Errorf("parsing sync state %s: %w", expanded, err)
	}
	if s.markers == nil {
		s.markers = make(map[string]string)
	}
	return s, nil
}

// Path returns the file backing the state.
func (s *State) Path() string {
	return s.path
}

// Has reports whether url carries a marker.
func (s *State) Has(url string) bool {
	_, ok := s.markers[url]
	return ok
}

// Get returns the marker for url.
func (s *State) Get(url string) (string, bool) {
	m, ok := s.markers[url]
	return m, ok
}

// Set records marker for url.
func (s *State) Set(url, marker string) {
	s.markers[url] = marker
}

// Delete removes the marker for url.
func (s *State) Delete(url string) {
	delete(s.markers, url)
}

// Len returns the number of markers.
func (s *State) Len() int {
	return len(s.markers)
}

// URLs returns the marked URLs in sorted order.
func (s *State) URLs() []string {
	urls := make([]string, 0, len(s.markers))
	for u := range s.markers {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Save writes the state atomically.
func (s *State) Save() error {
	data, err := json.MarshalIndent(s.markers, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sync state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := ledger.WriteFileAtomic(s.path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("writing sync state: %w", err)
	}
	return nil
}
