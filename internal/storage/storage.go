// Package storage uploads finished clips and thumbnails to an object store
// and returns durable public URLs.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore accepts a blob plus content type and returns a durable URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ObjectKey builds the upload key for a clip artifact:
// <clipIdentifier>_<unix ms>_<16 hex chars>.<ext>. The random suffix keeps
// re-runs from overwriting earlier uploads of the same clip.
func ObjectKey(clipIdentifier, ext string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("%s_%d_%s.%s", clipIdentifier, time.Now().UnixMilli(), random, ext)
}

// ContentTypeFor maps an artifact kind to its MIME type.
func ContentTypeFor(kind string) string {
	if kind == "video" {
		return "video/mp4"
	}
	return "image/jpeg"
}

// FileStore is an ObjectStore backed by a local directory. With BaseURL set
// it returns BaseURL/<key>; otherwise a file:// URL. It stands in for the
// remote record store in self-hosted and test deployments.
type FileStore struct {
	Dir     string
	BaseURL string
}

func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("object store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create object store directory %s: %w", dir, err)
	}
	return &FileStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.Contains(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	path := filepath.Join(s.Dir, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write object %s: %w", key, err)
	}

	if s.BaseURL != "" {
		return s.BaseURL + "/" + url.PathEscape(key), nil
	}
	return "file://" + path, nil
}

// UploadFile reads a local artifact and stores it under a fresh object key.
func UploadFile(ctx context.Context, store ObjectStore, filePath, kind, clipIdentifier string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read %s artifact %s: %w", kind, filePath, err)
	}
	ext := "jpg"
	if kind == "video" {
		ext = "mp4"
	}
	return store.Put(ctx, ObjectKey(clipIdentifier, ext), data, ContentTypeFor(kind))
}
