// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/vaultport/internal/models"

// Provider is the interface for vault file operations. All paths are
// relative to the vault root; implementations refuse paths that escape it.
type Provider interface {
	// Root returns the absolute vault root.
	Root() string
	// List returns metadata for every note under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Exists reports whether path exists (file or directory).
	Exists(path string) (bool, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
	// Move renames oldPath to newPath, copying across devices when needed.
	Move(oldPath, newPath string) error
}
