package ledger

import "fmt"

// CorruptError reports a persisted ledger that cannot be parsed. It is fatal:
// a run that cannot read its ledger must not scrape, persist or notify, and
// the offending file is left in place for manual inspection.
type CorruptError struct {
	Path string
	Line int
	Err  error
}

func (e *CorruptError) Error() string {
	where := e.Path
	if where == "" {
		where = "ledger"
	}
	if e.Line > 0 {
		return fmt.Sprintf("corrupt ledger %s (line %d): %v", where, e.Line, e.Err)
	}
	return fmt.Sprintf("corrupt ledger %s: %v", where, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}
