// Package storage keeps uploaded book files outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlokans/bookshare/internal/config"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("storage: object not found")

// Client defines the operations the book file store needs.
type Client interface {
	// Put writes size bytes from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Open returns the object's contents. The caller closes the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the client selected by cfg.Backend. It returns nil for
// StorageBackendNone, meaning file bytes stay in the books table.
func New(cfg config.Storage) (Client, error) {
	switch cfg.Backend {
	case config.StorageBackendNone, "":
		return nil, nil
	case config.StorageBackendLocal:
		store, err := NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageBackendMinio:
		store, err := NewMinioStore(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.UseSSL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// NewKey returns a fresh object key for an uploaded file, keeping its extension.
func NewKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return "books/" + uuid.NewString() + ext
}

// ReadAll loads the whole object into memory.
func ReadAll(ctx context.Context, client Client, key string) ([]byte, error) {
	rc, err := client.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
