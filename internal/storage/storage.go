package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned when a key escapes the storage root
var ErrInvalidKey = errors.New("invalid storage key")

// PutInput describes an object being written
type PutInput struct {
	Folder      string
	Filename    string
	ContentType string
	Size        int64
}

// PutResult identifies a stored object
type PutResult struct {
	Key string
	URL string
}

// ImageStorage stores variant images. Keys are stable identifiers that go
// into forms and the database; URLs are derived from keys.
type ImageStorage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// newKey builds "<folder>/<uuid><ext>"
func newKey(folder, filename string) string {
	name := uuid.NewString() + safeExt(filename)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// cleanKey rejects absolute keys and keys that climb out of the root
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return ext
	default:
		return ""
	}
}
