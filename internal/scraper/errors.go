package scraper

import (
	"errors"
	"fmt"
)

// ErrNoPageData is returned when a rendered page has no __NEXT_DATA__ script
// or no Apollo state. The page loaded but lists nothing parsable.
var ErrNoPageData = errors.New("no __NEXT_DATA__ page data")

// FetchError reports a group whose events could not be retrieved.
type FetchError struct {
	GroupURL string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching group %s: %v", e.GroupURL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
