package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// BlobStore keeps the raw uploaded CSV files on the local filesystem, one
// file per blob key.
type BlobStore struct {
	dir string
}

// NewBlobStore creates the blob directory if needed.
func NewBlobStore(dir string) (*BlobStore, error) {
	if dir == "" {
		dir = "./data/uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

// Save writes a blob via a temp file and rename, so a crash mid-write never
// leaves a half-written blob under a referenced key.
func (b *BlobStore) Save(key string, data []byte) error {
	tmp, err := os.CreateTemp(b.dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close blob: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename blob: %w", err)
	}

	return nil
}

// Remove deletes a blob. A missing file is not an error: cleanup may run
// twice for the same key.
func (b *BlobStore) Remove(key string) error {
	if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// Exists reports whether a blob is present.
func (b *BlobStore) Exists(key string) bool {
	_, err := os.Stat(b.path(key))
	return err == nil
}

// path flattens the key to its basename so a crafted key cannot escape the
// blob directory.
func (b *BlobStore) path(key string) string {
	return filepath.Join(b.dir, filepath.Base(key))
}
