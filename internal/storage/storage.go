package storage

import (
	"context"
	"io"
)

// StoredFile locates an uploaded file: URL is public, Key is what Remove takes.
type StoredFile struct {
	URL string
	Key string
}

// FileStore persists uploaded course documents.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (*StoredFile, error)
	Remove(ctx context.Context, key string) error
}
