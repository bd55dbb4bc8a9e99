// Package file stores each key-value slot as a small file in a directory.
package file

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/starship-shop/internal/domain/credits"
)

var _ credits.Storage = (*Store)(nil)

// Store implements credits.Storage on the local filesystem. Writes go through
// a temporary file and a rename, so a crash leaves either the old or the new
// value.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key))
}

// Get reads the value for key. A missing file means the key is absent.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "read %q", key)
	}
	return string(data), true, nil
}

// Set atomically replaces the value for key.
func (s *Store) Set(_ context.Context, key, value string) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %q", key)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "sync %q", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %q", key)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return errors.Wrapf(err, "replace %q", key)
	}
	return nil
}

// Ping checks that the storage directory is still accessible.
func (s *Store) Ping(context.Context) error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return errors.Wrap(err, "stat storage dir")
	}
	if !fi.IsDir() {
		return errors.Errorf("%s is not a directory", s.dir)
	}
	return nil
}
