// Package storage persists inspection photos. Handlers hold the PhotoStorage
// interface; the mock implementation keeps files on the local disk and is the
// only backend wired today.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("photo not found")

// PhotoStorage stores and serves vehicle inspection photos. Save returns the
// public URL recorded on the rental's condition report.
type PhotoStorage interface {
	Save(ctx context.Context, data []byte, filename, mimeType string) (string, error)
	Open(ctx context.Context, name string) ([]byte, string, error)
}
