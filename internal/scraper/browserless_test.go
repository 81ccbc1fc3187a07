package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewBrowserless(t *testing.T) {
	if _, err := NewBrowserless(Config{}); err == nil {
		t.Error("NewBrowserless() should require an API key")
	}

	b, err := NewBrowserless(Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("NewBrowserless() error: %v", err)
	}
	if b.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want default", b.endpoint)
	}
	if b.client.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", b.client.Timeout, DefaultTimeout)
	}
}

func TestBrowserless_Render(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    bool
	}{
		{
			name:       "rendered page",
			statusCode: http.StatusOK,
			body:       "<html>ok</html>",
		},
		{
			name:       "api error",
			statusCode: http.StatusTooManyRequests,
			body:       "rate limited",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if got := r.URL.Query().Get("token"); got != "secret" {
					t.Errorf("token = %q, want secret", got)
				}

				var req renderRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decoding request: %v", err)
				}
				if req.URL != "https://www.meetup.com/go-austin/events/" {
					t.Errorf("url = %q", req.URL)
				}
				if req.GotoOptions.WaitUntil != "domcontentloaded" || req.GotoOptions.Timeout != 60000 {
					t.Errorf("gotoOptions = %+v", req.GotoOptions)
				}

				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body)) // nolint:errcheck
			}))
			defer server.Close()

			b, err := NewBrowserless(Config{APIKey: "secret", Endpoint: server.URL + "/content"})
			if err != nil {
				t.Fatalf("NewBrowserless() error: %v", err)
			}

			html, err := b.Render(context.Background(), "https://www.meetup.com/go-austin/events/")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Render() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if strings.Contains(err.Error(), "secret") {
					t.Error("Render() error leaks the API token")
				}
				return
			}
			if string(html) != tt.body {
				t.Errorf("Render() = %q, want %q", html, tt.body)
			}
		})
	}
}

func TestBrowserless_RenderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	b, err := NewBrowserless(Config{APIKey: "secret", Endpoint: server.URL, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewBrowserless() error: %v", err)
	}

	_, err = b.Render(context.Background(), "https://www.meetup.com/go-austin/events/")
	if err == nil {
		t.Fatal("Render() should time out")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Error("Render() error leaks the API token")
	}
}
