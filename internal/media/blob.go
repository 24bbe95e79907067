package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists an object under a slash-separated key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// FileStore writes blobs below a root directory on local disk.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Put writes data to root/key through a temp file so readers never see a
// partial object.
func (s *FileStore) Put(_ context.Context, key string, data []byte, _ string) error {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	path := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename blob: %w", err)
	}
	return nil
}
