package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

// apolloEntry is one normalized object of the Apollo client cache.
type apolloEntry struct {
	Key   string
	Value json.RawMessage
}

type apolloEvent struct {
	Typename    string `json:"__typename"`
	Title       string `json:"title"`
	EventURL    string `json:"eventUrl"`
	DateTime    string `json:"dateTime"`
	Description string `json:"description"`
	IsOnline    bool   `json:"isOnline"`
	EventType   string `json:"eventType"`
	Venue       *struct {
		Ref string `json:"__ref"`
	} `json:"venue"`
}

type apolloVenue struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type apolloGroup struct {
	Name    string `json:"name"`
	URLName string `json:"urlname"`
}

// Extract parses a rendered group events page and returns its events as raw
// records, in page order. slug selects the group whose name is attached to
// the records. A page without Apollo state yields ErrNoPageData.
func Extract(r io.Reader, slug string) ([]event.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	script := doc.Find("script#__NEXT_DATA__").First()
	if script.Length() == 0 {
		return nil, ErrNoPageData
	}

	var page struct {
		Props struct {
			PageProps struct {
				ApolloState json.RawMessage `json:"__APOLLO_STATE__"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(script.Text()), &page); err != nil {
		return nil, fmt.Errorf("decoding __NEXT_DATA__: %w", err)
	}

	state := bytes.TrimSpace(page.Props.PageProps.ApolloState)
	if len(state) == 0 || bytes.Equal(state, []byte("null")) {
		return nil, ErrNoPageData
	}

	entries, err := decodeApolloState(state)
	if err != nil {
		return nil, fmt.Errorf("decoding Apollo state: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoPageData
	}

	return buildRecords(entries, slug), nil
}

// decodeApolloState decodes the cache object keeping its key order, which is
// the order the page lists events in.
func decodeApolloState(data []byte) ([]apolloEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var entries []apolloEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("entry %s: %w", key, err)
		}
		entries = append(entries, apolloEntry{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

func buildRecords(entries []apolloEntry, slug string) []event.RawRecord {
	venues := make(map[string]apolloVenue)
	groupName := ""
	firstGroup := ""

	for _, entry := range entries {
		switch {
		case strings.HasPrefix(entry.Key, "Venue:"):
			var v apolloVenue
			if json.Unmarshal(entry.Value, &v) == nil {
				venues[entry.Key] = v
			}
		case strings.HasPrefix(entry.Key, "Group:"):
			var g apolloGroup
			if json.Unmarshal(entry.Value, &g) != nil {
				continue
			}
			if firstGroup == "" {
				firstGroup = g.Name
			}
			if groupName == "" && slug != "" && strings.EqualFold(g.URLName, slug) {
				groupName = g.Name
			}
		}
	}
	if groupName == "" {
		groupName = firstGroup
	}

	records := make([]event.RawRecord, 0)
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Key, "Event:") {
			continue
		}

		var e apolloEvent
		if err := json.Unmarshal(entry.Value, &e); err != nil {
			// Leave it to normalization to reject; keep what identifies it.
			records = append(records, event.RawRecord{event.FieldGroupName: groupName})
			continue
		}
		if e.Typename != "Event" {
			continue
		}

		rec := event.RawRecord{
			event.FieldTitle:       e.Title,
			event.FieldURL:         e.EventURL,
			event.FieldDateTime:    e.DateTime,
			event.FieldDescription: e.Description,
			event.FieldIsOnline:    e.IsOnline,
			event.FieldEventType:   e.EventType,
			event.FieldGroupName:   groupName,
		}
		if e.Venue != nil {
			if v, ok := venues[e.Venue.Ref]; ok {
				rec[event.FieldVenueName] = v.Name
				rec[event.FieldAddress] = v.address()
			}
		}
		records = append(records, rec)
	}
	return records
}

// address joins the non-empty parts as "address, city, state, COUNTRY".
func (v apolloVenue) address() string {
	var parts []string
	for _, p := range []string{v.Address, v.City, v.State, strings.ToUpper(v.Country)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
