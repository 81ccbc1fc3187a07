package notifier

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

// DryRunNotifier prints what would be announced without posting anything
type DryRunNotifier struct {
	out io.Writer
}

// NewDryRunNotifier creates a dry-run notifier writing to out, or to
// standard output when out is nil.
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunNotifier{out: out}
}

// Notify prints each event that would be announced
func (n *DryRunNotifier) Notify(ctx context.Context, events []*event.Event) error {
	for i, evt := range events {
		fmt.Fprintf(n.out, "--- New event %d/%d ---\n", i+1, len(events))
		fmt.Fprintf(n.out, "%s\n", evt.Title)
		fmt.Fprintf(n.out, "  When:      %s\n", when(evt))
		fmt.Fprintf(n.out, "  Where:     %s\n", evt.Location())
		fmt.Fprintf(n.out, "  Group:     %s\n", evt.GroupName)
		fmt.Fprintf(n.out, "  Sales rep: %s\n", evt.SalesRep)
		fmt.Fprintf(n.out, "  URL:       %s\n\n", evt.URL)
	}
	return nil
}
