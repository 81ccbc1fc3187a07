package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

const (
	telegramAPIURL  = "https://api.telegram.org/bot"
	telegramTimeout = 10 * time.Second
	// telegramMaxMessage is the Bot API limit for one message, in characters.
	telegramMaxMessage = 4096
)

// TelegramNotifier sends a digest of new events to a Telegram chat
type TelegramNotifier struct {
	botToken   string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// NewTelegramNotifier creates a Telegram notifier
func NewTelegramNotifier(botToken, chatID string) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("chat ID is required")
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPIURL,
		httpClient: &http.Client{
			Timeout: telegramTimeout,
		},
	}, nil
}

// Notify sends the digest, split across messages when it is too long.
func (n *TelegramNotifier) Notify(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, msg := range splitMessage(FormatDigest(events), telegramMaxMessage) {
		if err := n.SendMessage(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// SendMessage sends a text message to the configured chat
func (n *TelegramNotifier) SendMessage(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	url := fmt.Sprintf("%s%s/sendMessage", n.baseURL, n.botToken)

	payload := map[string]interface{}{
		"chat_id":                  n.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		// The request URL embeds the bot token.
		return fmt.Errorf("sending telegram message: %w", unwrapURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("telegram API error (status %d)", resp.StatusCode)
		}
		return fmt.Errorf("parsing response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !result.OK {
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, result.Description)
	}
	return nil
}

// FormatDigest formats events as one HTML message grouped by Meetup group.
// Groups are listed alphabetically; events keep their order within a group.
func FormatDigest(events []*event.Event) string {
	if len(events) == 0 {
		return "No new Meetup events."
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("📬 <b>New Meetup Events</b> • %d new event%s\n\n", len(events), pluralize(len(events))))

	byGroup := make(map[string][]*event.Event)
	for _, evt := range events {
		byGroup[evt.GroupName] = append(byGroup[evt.GroupName], evt)
	}

	groups := make([]string, 0, len(byGroup))
	for name := range byGroup {
		groups = append(groups, name)
	}
	sort.Strings(groups)

	for _, name := range groups {
		groupEvents := byGroup[name]
		label := name
		if label == "" {
			label = "Unknown group"
		}
		msg.WriteString(fmt.Sprintf("👥 <b>%s</b> (%d event%s)\n", html.EscapeString(label), len(groupEvents), pluralize(len(groupEvents))))

		for _, evt := range groupEvents {
			msg.WriteString(fmt.Sprintf("  • <a href=\"%s\">%s</a>\n", html.EscapeString(evt.URL), html.EscapeString(evt.Title)))
			msg.WriteString(fmt.Sprintf("    📅 %s • 📍 %s", when(evt), html.EscapeString(place(evt))))
			if evt.SalesRep != "" {
				msg.WriteString(fmt.Sprintf(" • 👤 %s", html.EscapeString(evt.SalesRep)))
			}
			msg.WriteString("\n")
		}
		msg.WriteString("\n")
	}

	return strings.TrimRight(msg.String(), "\n")
}

// splitMessage breaks text at line boundaries into chunks of at most limit
// characters. A single line longer than limit is cut.
func splitMessage(text string, limit int) []string {
	var chunks []string
	var current strings.Builder
	size := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if size+len(runes) > limit {
			flush()
		}
		current.WriteString(string(runes))
		size += len(runes)
	}
	flush()

	return chunks
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
