package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// PreviewStore hands out revocable preview handles for selected images.
// Previews live in a scratch directory for the duration of a session and
// must be released on every exit path, happy or not.
type PreviewStore struct {
	basePath string
}

// NewPreviewStore creates a new PreviewStore instance
func NewPreviewStore(basePath string) (*PreviewStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating preview directory: %w", err)
	}
	return &PreviewStore{basePath: basePath}, nil
}

// Acquire writes the image to scratch storage and returns its handle.
func (p *PreviewStore) Acquire(data []byte) (*PreviewHandle, error) {
	id := uuid.NewString()
	path := filepath.Join(p.basePath, id)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing preview: %w", err)
	}
	return &PreviewHandle{id: id, path: path}, nil
}

// PreviewHandle is a revocable reference to a stored preview image.
// Release is idempotent: releasing twice never double-frees.
type PreviewHandle struct {
	id   string
	path string
	once sync.Once
}

// ID returns the opaque preview identifier.
func (h *PreviewHandle) ID() string {
	return h.id
}

// Path returns the on-disk location of the preview image.
func (h *PreviewHandle) Path() string {
	return h.path
}

// Release revokes the handle and removes the stored preview.
func (h *PreviewHandle) Release() {
	h.once.Do(func() {
		if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove preview", "path", h.path, "error", err)
		}
	})
}

// ImageItem is one selected receipt image held by a session.
type ImageItem struct {
	Name        string
	ContentType string
	Data        []byte
	Preview     *PreviewHandle
}

// release revokes the item's preview handle, if any.
func (i *ImageItem) release() {
	if i.Preview != nil {
		i.Preview.Release()
	}
}
