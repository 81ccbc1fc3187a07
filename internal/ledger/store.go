package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/meetup-events/internal/event"
)

// Store loads and saves the ledger.
type Store interface {
	// Load returns the persisted events. A missing ledger is an empty one; an
	// unreadable ledger is a *CorruptError.
	Load(ctx context.Context) ([]*event.Event, error)
	// Save replaces the persisted ledger with events, sorted by date.
	Save(ctx context.Context, events []*event.Event) error
}

// FileStore keeps the ledger in a CSV file on local disk.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore for path, expanding a leading "~/" and
// creating the parent directory.
func NewFileStore(path string) (*FileStore, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	return &FileStore{path: path}, nil
}

// Path returns the ledger file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the ledger from disk
func (s *FileStore) Load(ctx context.Context) ([]*event.Event, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*event.Event{}, nil
		}
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	events, err := Decode(bytes.NewReader(data))
	if err != nil {
		var corrupt *CorruptError
		if errors.As(err, &corrupt) {
			corrupt.Path = s.path
		}
		return nil, err
	}
	return events, nil
}

// Save writes the ledger to disk. Readers see either the previous ledger or
// the new one, never a partial write.
func (s *FileStore) Save(ctx context.Context, events []*event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, events); err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	if err := WriteFileAtomic(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it and
// renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // nolint:errcheck // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() // nolint:errcheck
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() // nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	// Persist the rename itself. Not every platform supports syncing a directory.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close() // nolint:errcheck
	}
	return nil
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return path, nil
}
