package event

import "fmt"

// MalformedRecordError reports a raw record that cannot become an Event.
// It is scoped to a single record and never fatal to a run.
type MalformedRecordError struct {
	URL    string // event URL when known
	Field  string
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("malformed record: %s %s", e.Field, e.Reason)
	if e.URL != "" {
		msg += fmt.Sprintf(" (url %s)", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
