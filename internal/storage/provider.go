// Package storage defines the memory workspace file-system abstraction.
package storage

import (
	"context"

	"github.com/starford/memdash/internal/models"
)

// Provider is the interface for workspace note operations.
type Provider interface {
	// List returns metadata for the long-term note and every daily-dir note,
	// most recently modified first.
	List() ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to workspace root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to workspace root).
	Write(path string, content []byte) error
	// Load returns every listed note with its content, ordered by path.
	// Notes that cannot be read are skipped.
	Load(ctx context.Context) ([]models.Note, error)
}
