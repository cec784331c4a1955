package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStore keeps certificate files under a local directory. It is used
// when no S3 bucket is configured.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create certificate dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// path confines key to the store directory.
func (d *DiskStore) path(key string) string {
	return filepath.Join(d.dir, filepath.Base(key))
}

func (d *DiskStore) PutObject(_ context.Context, key, _ string, body []byte) error {
	if err := os.WriteFile(d.path(key), body, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (d *DiskStore) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(key))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (d *DiskStore) DeleteObject(_ context.Context, key string) error {
	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
