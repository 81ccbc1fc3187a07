package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.lock")
	ctx := context.Background()

	first, err := NewLock(path)
	if err != nil {
		t.Fatalf("NewLock() error: %v", err)
	}
	second, err := NewLock(path)
	if err != nil {
		t.Fatalf("NewLock() error: %v", err)
	}

	if err := first.Acquire(ctx, time.Second); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	if err := second.Acquire(ctx, 0); !errors.Is(err, ErrLocked) {
		t.Errorf("second Acquire() error = %v, want ErrLocked", err)
	}
	if err := second.Acquire(ctx, 300*time.Millisecond); !errors.Is(err, ErrLocked) {
		t.Errorf("second Acquire() with timeout error = %v, want ErrLocked", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if err := second.Acquire(ctx, time.Second); err != nil {
		t.Errorf("Acquire() after release error: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Errorf("Release() error: %v", err)
	}
}
