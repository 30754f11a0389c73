package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/warranty-manager/internal/config"
)

func upload(name, ct string, size int64, body string) Upload {
	return Upload{
		Field:        "documents",
		OriginalName: name,
		ContentType:  ct,
		Size:         size,
		Open:         func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil },
	}
}

func TestDocumentRules(t *testing.T) {
	tests := []struct {
		name string
		ups  []Upload
		want error
	}{
		{"pdf ok", []Upload{upload("receipt.pdf", "application/pdf", 1024, "")}, nil},
		{"docx ok", []Upload{upload("a.DOCX", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", 10, "")}, nil},
		{"exe rejected", []Upload{upload("a.exe", "application/octet-stream", 10, "")}, ErrUnsupportedType},
		{"mime mismatch", []Upload{upload("a.pdf", "text/plain", 10, "")}, ErrUnsupportedType},
		{"too large", []Upload{upload("a.pdf", "application/pdf", 5<<20+1, "")}, ErrTooLarge},
		{"empty", nil, ErrNoFile},
		{"six files", make6(), ErrTooManyFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DocumentRules.Check(tt.ups)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func make6() []Upload {
	out := make([]Upload, 6)
	for i := range out {
		out[i] = upload("a.png", "image/png", 1, "")
	}
	return out
}

func TestImageRulesRejectPDF(t *testing.T) {
	err := ImageRules.Check([]Upload{upload("a.pdf", "application/pdf", 1, "")})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.NoError(t, ImageRules.Check([]Upload{upload("me.jpg", "image/jpeg", 1, "")}))
}

func TestStoredName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	name := StoredName(upload("Receipt.PDF", "application/pdf", 1, ""), now)
	assert.Regexp(t, regexp.MustCompile(`^documents-1700000000123-[0-9a-f-]{36}\.pdf$`), name)
	assert.NotEqual(t, name, StoredName(upload("Receipt.PDF", "application/pdf", 1, ""), now))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	path, err := Put(ctx, s, "documents-1-x.pdf", upload("x.pdf", "application/pdf", 5, "hello"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "documents-1-x.pdf"), path)

	rc, err := s.Open(ctx, path)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = io.Copy(&buf, rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", buf.String())

	require.NoError(t, s.Remove(ctx, path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Remove(ctx, path), "removing a missing file is not an error")

	_, err = s.Open(ctx, path)
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"documents-1-a.pdf": "application/pdf",
		"image-1-b.PNG":     "image/png",
		"no-extension":      "application/octet-stream",
	}
	for path, want := range tests {
		assert.Equal(t, want, ContentType(path), path)
	}
}

func TestLocalStoreRejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save(ctx, "../evil", "text/plain", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.ErrorIs(t, s.Remove(ctx, filepath.Join(s.Dir(), "..", "other")), ErrInvalidPath)
	assert.ErrorIs(t, s.Remove(ctx, "/etc/passwd"), ErrInvalidPath)
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), configWithDriver("ftp"))
	assert.Error(t, err)
}

func configWithDriver(d string) config.StorageConfig {
	return config.StorageConfig{Driver: d}
}
