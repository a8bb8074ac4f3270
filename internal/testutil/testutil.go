// Package testutil provides shared test helpers for setting up reference
// archives and catalogs.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/steno/internal/catalog"
	"github.com/starford/steno/internal/storage"
)

// TestCatalog creates a temporary SQLite catalog that is automatically
// closed.
func TestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	db, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestArchive creates a temporary project root with an empty References
// directory and returns the root plus a provider on References.
func TestArchive(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.EnsureFS(filepath.Join(root, "References"))
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}
