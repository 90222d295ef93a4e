// Package snapshot persists the enriched catalog as a single JSON file.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/mart-locator/internal/domain"
)

// FileStore reads and wholesale-replaces the snapshot file.
type FileStore struct {
	path string
}

// NewFileStore returns a store for the snapshot at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot location.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes entries to a temporary file next to the target and renames
// it into place, so readers see either the old or the new snapshot. It
// returns the number of records written.
func (s *FileStore) Save(ctx context.Context, entries []domain.CatalogEntry) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrPersistFailed, err)
	}
	if entries == nil {
		entries = []domain.CatalogEntry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("%w: encode: %w", domain.ErrPersistFailed, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrPersistFailed, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrPersistFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%w: write: %w", domain.ErrPersistFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%w: sync: %w", domain.ErrPersistFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: close: %w", domain.ErrPersistFailed, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrPersistFailed, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return 0, fmt.Errorf("%w: replace: %w", domain.ErrPersistFailed, err)
	}
	return len(entries), nil
}

// Load reads the snapshot. A missing file is reported as os.ErrNotExist.
func (s *FileStore) Load(_ context.Context) ([]domain.CatalogEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var entries []domain.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	return entries, nil
}
