package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrTooLarge        = errors.New("file too large")
	ErrTooManyFiles    = errors.New("too many files")
	ErrNoFile          = errors.New("no file uploaded")
)

// Rules restrict what may be uploaded for one purpose.
type Rules struct {
	MIMETypes  map[string]bool
	Extensions map[string]bool
	MaxSize    int64
	MaxFiles   int
}

const defaultMaxSize = 5 << 20 // 5 MiB

// DocumentRules accept pdf, images and Word documents, 5 MiB each, at most
// five per request.
var DocumentRules = Rules{
	MIMETypes: map[string]bool{
		"application/pdf":    true,
		"image/jpeg":         true,
		"image/png":          true,
		"image/gif":          true,
		"application/msword": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	},
	Extensions: map[string]bool{
		".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".doc": true, ".docx": true,
	},
	MaxSize:  defaultMaxSize,
	MaxFiles: 5,
}

// ImageRules accept a single jpeg, png or gif.
var ImageRules = Rules{
	MIMETypes:  map[string]bool{"image/jpeg": true, "image/png": true, "image/gif": true},
	Extensions: map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true},
	MaxSize:    defaultMaxSize,
	MaxFiles:   1,
}

// WithMaxSize returns a copy of r with a different per-file limit.
func (r Rules) WithMaxSize(n int64) Rules {
	if n > 0 {
		r.MaxSize = n
	}
	return r
}

// Check validates a batch of uploads against r.
func (r Rules) Check(uploads []Upload) error {
	if len(uploads) == 0 {
		return ErrNoFile
	}
	if r.MaxFiles > 0 && len(uploads) > r.MaxFiles {
		return fmt.Errorf("%w: at most %d", ErrTooManyFiles, r.MaxFiles)
	}
	for _, u := range uploads {
		if err := r.check(u); err != nil {
			return err
		}
	}
	return nil
}

func (r Rules) check(u Upload) error {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(u.ContentType, ";", 2)[0]))
	ext := strings.ToLower(filepath.Ext(u.OriginalName))
	if !r.MIMETypes[ct] || !r.Extensions[ext] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, u.OriginalName)
	}
	if r.MaxSize > 0 && u.Size > r.MaxSize {
		return fmt.Errorf("%w: %s", ErrTooLarge, u.OriginalName)
	}
	return nil
}

// ValidateImage checks a single product image or profile picture.
func ValidateImage(u Upload) error { return ImageRules.Check([]Upload{u}) }
