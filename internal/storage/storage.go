// Package storage owns the bytes behind document attachments, product
// images and profile pictures. The rest of the application only keeps the
// path a Store returns.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/warranty-manager/internal/config"
)

// Store saves, opens and removes uploaded files.
type Store interface {
	// Save stores r under name and returns the path to keep in the database.
	Save(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}

// ErrInvalidPath is returned for a path outside the store.
var ErrInvalidPath = errors.New("storage: invalid path")

// ErrNotExist is returned by Open when nothing is stored under the path.
var ErrNotExist = errors.New("storage: file does not exist")

// ContentType guesses a MIME type from the extension of path.
func ContentType(path string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// New builds the Store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return NewLocalStore(cfg.UploadPath)
	case "s3":
		return NewS3Store(ctx, cfg)
	}
	return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
}

// Upload is one file received from a client, not yet stored.
type Upload struct {
	Field        string // form field name; prefixes the stored name
	OriginalName string
	ContentType  string
	Size         int64
	Open         func() (io.ReadCloser, error)
}

// StoredName returns "<field>-<unix-ms>-<uuid><ext>" for u.
func StoredName(u Upload, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(u.OriginalName))
	field := u.Field
	if field == "" {
		field = "file"
	}
	return fmt.Sprintf("%s-%d-%s%s", field, now.UnixMilli(), uuid.NewString(), ext)
}

// Put validates nothing; it opens u and saves it under name.
func Put(ctx context.Context, s Store, name string, u Upload) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()
	return s.Save(ctx, name, u.ContentType, rc, u.Size)
}
