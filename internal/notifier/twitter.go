package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

const (
	tweetLimit = 280
	tweetDelay = 2 * time.Second
)

// TwitterCredentials are the OAuth1 user-context keys of the posting account.
type TwitterCredentials struct {
	APIKey       string `mapstructure:"api_key"`
	APISecret    string `mapstructure:"api_secret"`
	AccessToken  string `mapstructure:"access_token"`
	AccessSecret string `mapstructure:"access_secret"`
}

// TwitterNotifier posts events to Twitter
type TwitterNotifier struct {
	client *twitter.Client
	delay  time.Duration
}

// NewTwitterNotifier creates a Twitter notifier from creds
func NewTwitterNotifier(creds TwitterCredentials) (*TwitterNotifier, error) {
	if creds.APIKey == "" || creds.APISecret == "" || creds.AccessToken == "" || creds.AccessSecret == "" {
		return nil, fmt.Errorf("missing required Twitter credentials")
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	return newTwitterNotifier(config.Client(oauth1.NoContext, token)), nil
}

func newTwitterNotifier(httpClient *http.Client) *TwitterNotifier {
	return &TwitterNotifier{
		client: twitter.NewClient(httpClient),
		delay:  tweetDelay,
	}
}

// Notify posts one tweet per event, pausing between tweets.
func (n *TwitterNotifier) Notify(ctx context.Context, events []*event.Event) error {
	for i, evt := range events {
		if _, _, err := n.client.Statuses.Update(formatTweet(evt), nil); err != nil {
			return fmt.Errorf("failed to post tweet for event %s: %w", evt.URL, unwrapURLError(err))
		}

		if i < len(events)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.delay):
			}
		}
	}
	return nil
}

// formatTweet formats an event as a tweet of at most 280 characters. The
// event link always survives truncation.
func formatTweet(evt *event.Event) string {
	body := fmt.Sprintf("📣 New Meetup event!\n\n%s\n📅 %s\n📍 %s", evt.Title, when(evt), place(evt))
	if evt.GroupName != "" {
		body += fmt.Sprintf("\n👥 %s", evt.GroupName)
	}
	link := "\n\n" + evt.URL

	// Twitter shortens every link to 23 characters.
	budget := tweetLimit - len([]rune("\n\n")) - 23
	if runes := []rune(body); len(runes) > budget {
		body = string(runes[:budget-3]) + "..."
	}
	return body + link
}

func unwrapURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}
