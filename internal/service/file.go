package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/iliyamo/warranty-manager/internal/storage"
)

// File is a stored file opened for download. The caller closes Body.
type File struct {
	Name        string
	ContentType string
	Body        io.ReadCloser
}

// openFile opens path in files. A missing object is ErrNotFound. An empty
// contentType is guessed from the path.
func openFile(ctx context.Context, files storage.Store, path, name, contentType string) (*File, error) {
	body, err := files.Open(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, fmt.Errorf("file %w", ErrNotFound)
		}
		return nil, err
	}
	if contentType == "" {
		contentType = storage.ContentType(path)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return &File{Name: name, ContentType: contentType, Body: body}, nil
}
