package catalog

import (
	"log/slog"
	"strings"

	"github.com/starford/steno/internal/checksum"
	"github.com/starford/steno/internal/parser"
	"github.com/starford/steno/internal/storage"
)

// indexFileName is the archive index, which is not itself a reference.
const indexFileName = "index.md"

// SyncStats summarises one Sync pass.
type SyncStats struct {
	Indexed   int `json:"indexed"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

// Sync walks the reference archive and brings the catalog up to date:
//   - new/changed reference files are parsed and upserted
//   - references whose file is gone are deleted from the catalog
//
// Only top-level .md files other than the index are references.
func Sync(db Catalog, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats

	metas, err := store.List("")
	if err != nil {
		return stats, err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		slug, ok := slugOf(m.Path)
		if !ok {
			continue
		}
		disk[slug] = struct{}{}

		if checksums[slug] == m.Checksum {
			stats.Unchanged++
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, slug, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("slug", slug))
	}

	// Remove stale entries.
	for slug := range checksums {
		if _, ok := disk[slug]; ok {
			continue
		}
		if err := db.Delete(slug); err != nil {
			logger.Warn("sync: delete failed", slog.String("slug", slug), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("slug", slug))
	}

	return stats, nil
}

func slugOf(path string) (string, bool) {
	if path == indexFileName || strings.Contains(path, "/") {
		return "", false
	}
	return strings.TrimSuffix(path, ".md"), true
}

// indexFile parses data and upserts it into the DB.
func indexFile(db Catalog, slug string, data []byte) error {
	res := parser.Parse(data)
	ref := res.Reference(slug)
	ref.Checksum = checksum.Sum(data)
	return db.Upsert(ref, res.Body)
}
