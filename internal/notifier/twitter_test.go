package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// rewriteTransport sends every request to a test server.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestFormatTweet(t *testing.T) {
	long := testEvents(1)[0]
	long.Title = strings.Repeat("A very long Meetup event title ", 20)

	tests := []struct {
		name     string
		evt      func() string
		contains []string
	}{
		{
			name:     "complete event",
			evt:      func() string { return formatTweet(testEvents(1)[0]) },
			contains: []string{"Go Night A", "2025-07-10 at 18:30", "Capital Factory", "Go Austin", "https://www.meetup.com/go-austin/events/a/"},
		},
		{
			name:     "very long title gets truncated",
			evt:      func() string { return formatTweet(long) },
			contains: []string{"...", long.URL},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.evt()
			if n := len([]rune(got)); n > tweetLimit+len(testEvents(1)[0].URL) {
				t.Errorf("formatTweet() length = %d", n)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("formatTweet() missing %q in tweet:\n%s", want, got)
				}
			}
		})
	}
}

func TestNewTwitterNotifier(t *testing.T) {
	if _, err := NewTwitterNotifier(TwitterCredentials{APIKey: "k"}); err == nil {
		t.Error("NewTwitterNotifier() should require every credential")
	}
	n, err := NewTwitterNotifier(TwitterCredentials{APIKey: "k", APISecret: "s", AccessToken: "t", AccessSecret: "a"})
	if err != nil || n == nil {
		t.Errorf("NewTwitterNotifier() = %v, %v", n, err)
	}
}

func TestTwitterNotifier_Notify(t *testing.T) {
	var statuses []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1.1/statuses/update.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error: %v", err)
		}
		statuses = append(statuses, r.Form.Get("status"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"text":"ok"}`)) // nolint:errcheck
	}))
	defer server.Close()

	target, _ := url.Parse(server.URL)
	n := newTwitterNotifier(&http.Client{Transport: rewriteTransport{target: target}})
	n.delay = 0

	if err := n.Notify(context.Background(), testEvents(3)); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("posted %d tweets, want 3", len(statuses))
	}
	if !strings.Contains(statuses[2], "Go Night C") {
		t.Errorf("third tweet = %q", statuses[2])
	}
}

func TestTwitterNotifier_NotifyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"code":187,"message":"Status is a duplicate."}]}`)) // nolint:errcheck
	}))
	defer server.Close()

	target, _ := url.Parse(server.URL)
	n := newTwitterNotifier(&http.Client{Transport: rewriteTransport{target: target}})
	n.delay = 0

	if err := n.Notify(context.Background(), testEvents(1)); err == nil {
		t.Error("Notify() should fail on an API error")
	}
}
