package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

// DefaultSlackMaxEvents caps the events listed in one message; Slack rejects
// messages with more than 50 blocks.
const DefaultSlackMaxEvents = 10

const slackTimeout = 30 * time.Second

// SlackNotifier posts a Block Kit summary to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	maxEvents  int
	httpClient *http.Client
}

// NewSlackNotifier creates a Slack notifier. maxEvents <= 0 uses
// DefaultSlackMaxEvents.
func NewSlackNotifier(webhookURL string, maxEvents int) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}
	if maxEvents <= 0 {
		maxEvents = DefaultSlackMaxEvents
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		maxEvents:  maxEvents,
		httpClient: &http.Client{Timeout: slackTimeout},
	}, nil
}

// Notify posts one message listing events.
func (n *SlackNotifier) Notify(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}

	msg := FormatSlackMessage(events, n.maxEvents)
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, msg); err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	return nil
}

// FormatSlackMessage builds the Block Kit message: a header with the total,
// a section per event up to maxEvents, and a context line counting the rest.
func FormatSlackMessage(events []*event.Event, maxEvents int) *slack.WebhookMessage {
	header := fmt.Sprintf("New Meetup Events Found (%d)", len(events))

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, header, true, false)),
		slack.NewDividerBlock(),
	}

	shown := events
	if len(shown) > maxEvents {
		shown = shown[:maxEvents]
	}
	for _, evt := range shown {
		blocks = append(blocks,
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, formatSlackEvent(evt), false, false), nil, nil),
			slack.NewDividerBlock(),
		)
	}

	if rest := len(events) - len(shown); rest > 0 {
		more := slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("_... and %d more events_", rest), false, false)
		blocks = append(blocks, slack.NewContextBlock("", more))
	}

	return &slack.WebhookMessage{
		Text:   header,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

func formatSlackEvent(evt *event.Event) string {
	title := evt.Title
	if title == "" {
		title = "Untitled Event"
	}
	rep := evt.SalesRep
	if rep == "" {
		rep = "Unassigned"
	}

	return fmt.Sprintf("*<%s|%s>*\nDate: %s\nLocation: %s\nGroup: %s\nSales Rep: *%s*",
		evt.URL, title, when(evt), place(evt), evt.GroupName, rep)
}
