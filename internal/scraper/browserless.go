package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultEndpoint is the hosted browserless content API.
	DefaultEndpoint = "https://chrome.browserless.io/content"
	// DefaultTimeout bounds one render request.
	DefaultTimeout = 90 * time.Second
	// navigationTimeout is the page load budget given to the headless browser, in ms.
	navigationTimeout = 60000
	maxPageSize       = 16 << 20
)

// Config configures the browserless rendering client.
type Config struct {
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint" default:"https://chrome.browserless.io/content"`
	Timeout  time.Duration `mapstructure:"timeout" default:"90s"`
}

// Renderer renders a URL in a headless browser and returns the page HTML.
type Renderer interface {
	Render(ctx context.Context, pageURL string) ([]byte, error)
}

// Browserless renders pages through the browserless /content API.
type Browserless struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// NewBrowserless creates a rendering client.
func NewBrowserless(cfg Config) (*Browserless, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("browserless API key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Browserless{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
	}, nil
}

type renderRequest struct {
	URL         string      `json:"url"`
	GotoOptions gotoOptions `json:"gotoOptions"`
}

type gotoOptions struct {
	WaitUntil string `json:"waitUntil"`
	Timeout   int    `json:"timeout"`
}

// Render returns the rendered HTML of pageURL.
func (b *Browserless) Render(ctx context.Context, pageURL string) ([]byte, error) {
	payload, err := json.Marshal(renderRequest{
		URL: pageURL,
		GotoOptions: gotoOptions{
			WaitUntil: "domcontentloaded",
			Timeout:   navigationTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint, err := url.Parse(b.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("token", b.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		// The request URL carries the API token; report the page instead.
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return nil, fmt.Errorf("rendering %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("browserless API error (status %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("reading rendered page: %w", err)
	}
	return body, nil
}
