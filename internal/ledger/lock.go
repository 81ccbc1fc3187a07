package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the ledger lock.
var ErrLocked = errors.New("ledger is locked by another run")

const lockRetryDelay = 250 * time.Millisecond

// Lock is an advisory, cross-process lock guarding a ledger between load and
// save.
type Lock struct {
	fl *flock.Flock
}

// NewLock creates a lock backed by the file at path.
func NewLock(path string) (*Lock, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	return &Lock{fl: flock.New(path)}, nil
}

// Acquire takes the lock, waiting up to timeout. A zero timeout tries once.
func (l *Lock) Acquire(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		ok, err := l.fl.TryLock()
		if err != nil {
			return fmt.Errorf("locking %s: %w", l.fl.Path(), err)
		}
		if !ok {
			return ErrLocked
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := l.fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("locking %s: %w", l.fl.Path(), err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}
