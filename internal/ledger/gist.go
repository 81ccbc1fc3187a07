package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

const (
	gistAPIURL = "https://api.github.com/gists"
	// GistFilename is the file inside the gist that holds the ledger.
	GistFilename = "events.csv"
	gistTimeout  = 15 * time.Second
)

// GistStore keeps the ledger as a CSV file inside a private GitHub Gist.
type GistStore struct {
	gistID      string
	githubToken string
	baseURL     string
	httpClient  *http.Client
}

// NewGistStore creates a Gist-backed ledger store
func NewGistStore(gistID, githubToken string) (*GistStore, error) {
	if gistID == "" {
		return nil, fmt.Errorf("gist ID is required")
	}
	if githubToken == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}

	return &GistStore{
		gistID:      gistID,
		githubToken: githubToken,
		baseURL:     gistAPIURL,
		httpClient: &http.Client{
			Timeout: gistTimeout,
		},
	}, nil
}

// Load retrieves the ledger from the gist. A gist without the ledger file is
// an empty ledger.
func (g *GistStore) Load(ctx context.Context) ([]*event.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.gistURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Response body is not echoed; it may contain token scopes.
		return nil, fmt.Errorf("GitHub API error (status %d)", resp.StatusCode)
	}

	var gistResp struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gistResp); err != nil {
		return nil, fmt.Errorf("decoding gist response: %w", err)
	}

	file, exists := gistResp.Files[GistFilename]
	if !exists {
		return []*event.Event{}, nil
	}

	events, err := Decode(strings.NewReader(file.Content))
	if err != nil {
		var corrupt *CorruptError
		if errors.As(err, &corrupt) {
			corrupt.Path = "gist:" + g.gistID + "/" + GistFilename
		}
		return nil, err
	}
	return events, nil
}

// Save replaces the ledger file in the gist. A single PATCH replaces the
// whole file, so readers never see a partial ledger.
func (g *GistStore) Save(ctx context.Context, events []*event.Event) error {
	var buf bytes.Buffer
	if err := Encode(&buf, events); err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	payload := map[string]interface{}{
		"files": map[string]interface{}{
			GistFilename: map[string]string{
				"content": buf.String(),
			},
		},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, g.gistURL(), bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("updating gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API error (status %d)", resp.StatusCode)
	}
	return nil
}

func (g *GistStore) gistURL() string {
	return fmt.Sprintf("%s/%s", g.baseURL, g.gistID)
}

func (g *GistStore) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("token %s", g.githubToken))
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}
