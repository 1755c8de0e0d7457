// Package fs stores document blobs on the local filesystem.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meridian-games/landsync/internal/errs"
)

// Store writes blobs under a root directory, one file per key.
type Store struct{ root string }

// New constructs a filesystem store rooted at dir.
func New(dir string) *Store { return &Store{root: dir} }

// Get reads the object bytes. A missing file maps to ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return b, nil
}

// Put writes the object through a temp file in the same directory and renames
// it into place, so readers never observe a partially written document.
func (s *Store) Put(_ context.Context, key string, data []byte) error {
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir for blob %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return fmt.Errorf("temp for blob %s: %w", key, err)
	}
	name := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close blob %s: %w", key, err)
	}
	if err = os.Rename(name, dst); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename blob %s: %w", key, err)
	}
	return nil
}
