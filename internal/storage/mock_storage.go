package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type mockStorage struct {
	uploadDir string
	baseURL   string
}

// NewMockStorage stores photos on the local filesystem and serves them
// through the API's /uploads route.
func NewMockStorage(uploadDir, baseURL string) (PhotoStorage, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &mockStorage{
		uploadDir: uploadDir,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *mockStorage) Save(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	// Unique name so concurrent uploads of "front.jpg" never collide.
	name := fmt.Sprintf("%d_%s_%s", time.Now().UnixNano(), uuid.NewString()[:8], sanitize(filename))
	path := filepath.Join(s.uploadDir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}
	return fmt.Sprintf("%s/uploads/%s", s.baseURL, name), nil
}

func (s *mockStorage) Open(ctx context.Context, name string) ([]byte, string, error) {
	// Reject traversal before touching the filesystem.
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, "", ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.uploadDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return data, mimeType, nil
}

func sanitize(filename string) string {
	base := filepath.Base(filename)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}
