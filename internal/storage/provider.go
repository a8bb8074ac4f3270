// Package storage defines the file-system abstraction used for fragments
// and the reference archive.
package storage

import (
	"errors"

	"github.com/starford/steno/internal/models"
)

// ErrPathEscape is returned when a relative path resolves outside the root.
var ErrPathEscape = errors.New("storage: path escapes root")

// Provider is the interface for file operations relative to a root directory.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Path resolves rel against the root and returns the absolute path.
	Path(rel string) (string, error)
	// List returns metadata for every .md file under dir, skipping hidden directories.
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a file exists at path.
	Exists(path string) bool
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// AppendLocked appends the result of build(existing) to path while holding
	// an exclusive lock, so read-check-append sequences are not interleaved.
	AppendLocked(path string, build func(existing []byte) ([]byte, error)) error
}
