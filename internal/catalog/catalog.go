package catalog

import (
	"context"

	"github.com/starford/steno/internal/models"
)

// Catalog defines the catalog operations used by the front ends.
// Consumers depend on this interface rather than on *DB so they can be
// tested with fakes.
type Catalog interface {
	Upsert(ref models.Reference, body string) error
	Delete(slug string) error
	Get(slug string) (*models.Reference, error)
	List(limit, offset int, format string) ([]models.Reference, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Record(ctx context.Context, ref models.Reference, markdown []byte) error
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
