package cli

import (
	"testing"
	"time"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

func day(d int) time.Time {
	return time.Date(2030, time.March, d, 0, 0, 0, 0, time.UTC)
}

func titles(events []*event.Event) []string {
	out := make([]string, len(events))
	for i, evt := range events {
		out[i] = evt.Title
	}
	return out
}

func TestSortEvents(t *testing.T) {
	newEvents := func() []*event.Event {
		return []*event.Event{
			{Title: "Beta", Date: day(3), GroupName: "go-lang"},
			{Title: "alpha", Date: day(5), GroupName: "Rustaceans"},
			{Title: "Undated", GroupName: "go-lang"},
			{Title: "Gamma", Date: day(3), Time: "09:30", GroupName: "go-lang"},
			{Title: "Delta", Date: day(1), GroupName: "Rustaceans"},
		}
	}

	tests := []struct {
		name  string
		order SortOrder
		want  []string
	}{
		{
			name:  "by date",
			order: SortByDate,
			want:  []string{"Delta", "Beta", "Gamma", "alpha", "Undated"},
		},
		{
			name:  "by group",
			order: SortByGroup,
			want:  []string{"Beta", "Gamma", "Undated", "Delta", "alpha"},
		},
		{
			name:  "by title",
			order: SortByTitle,
			want:  []string{"alpha", "Beta", "Delta", "Gamma", "Undated"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := newEvents()
			sortEvents(events, tt.order)
			got := titles(events)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("sortEvents(%s) = %v, want %v", tt.order, got, tt.want)
				}
			}
		})
	}
}

func TestSortedEvents_DoesNotMutateInput(t *testing.T) {
	events := []*event.Event{
		{Title: "Later", Date: day(9)},
		{Title: "Sooner", Date: day(2)},
	}
	sorted := sortedEvents(events, SortByDate)

	if sorted[0].Title != "Sooner" {
		t.Errorf("sorted[0] = %q, want Sooner", sorted[0].Title)
	}
	if events[0].Title != "Later" {
		t.Errorf("input reordered: events[0] = %q, want Later", events[0].Title)
	}
}

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    SortOrder
		wantErr bool
	}{
		{"date", SortByDate, false},
		{"GROUP", SortByGroup, false},
		{"title", SortByTitle, false},
		{"state", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortOrder(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSortOrder(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSortOrder(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
