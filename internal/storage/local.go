package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// LocalFileStore writes files under a directory served at URLPrefix.
type LocalFileStore struct {
	dir       string
	urlPrefix string
	logger    *logrus.Logger
}

func NewLocalFileStore(dir, urlPrefix string, logger *logrus.Logger) (*LocalFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalFileStore{dir: dir, urlPrefix: urlPrefix, logger: logger}, nil
}

func (s *LocalFileStore) Dir() string {
	return s.dir
}

func (s *LocalFileStore) Save(ctx context.Context, name string, r io.Reader) (*StoredFile, error) {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid file name")
	}

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return &StoredFile{URL: path.Join(s.urlPrefix, name), Key: name}, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *LocalFileStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.WithError(err).WithField("key", key).Error("Failed to remove file")
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}
