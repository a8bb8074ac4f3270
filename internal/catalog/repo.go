package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/steno/internal/apperr"
	"github.com/starford/steno/internal/models"
	"github.com/starford/steno/internal/parser"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Upsert inserts or replaces a reference and its FTS entry within a
// transaction.
func (db *DB) Upsert(ref models.Reference, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO refs (slug, title, source_url, format, bibkey, retrieved_at, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title        = excluded.title,
			source_url   = excluded.source_url,
			format       = excluded.format,
			bibkey       = excluded.bibkey,
			retrieved_at = excluded.retrieved_at,
			checksum     = excluded.checksum,
			body         = excluded.body,
			updated_at   = excluded.updated_at
	`, ref.Slug, ref.Title, ref.SourceURL, string(ref.Format), ref.BibKey,
		ref.RetrievedAt.UTC(), ref.Checksum, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("catalog: upsert reference: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, ref.Slug, ref.Title, body, ref.BibKey); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a reference and its FTS entry.
func (db *DB) Delete(slug string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, slug)
	if _, err := tx.Exec(`DELETE FROM refs WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	return tx.Commit()
}

const refColumns = `slug, title, source_url, format, bibkey, retrieved_at, checksum`

type scanner interface {
	Scan(dest ...any) error
}

func scanRef(s scanner) (models.Reference, error) {
	var (
		ref       models.Reference
		format    string
		retrieved sql.NullTime
	)
	if err := s.Scan(&ref.Slug, &ref.Title, &ref.SourceURL, &format, &ref.BibKey, &retrieved, &ref.Checksum); err != nil {
		return ref, err
	}
	ref.Format = models.Format(format)
	if retrieved.Valid {
		ref.RetrievedAt = retrieved.Time.UTC()
	}
	return ref, nil
}

// Get returns one reference by slug, or apperr.ErrNotFound.
func (db *DB) Get(slug string) (*models.Reference, error) {
	row := db.conn.QueryRow(`SELECT `+refColumns+` FROM refs WHERE slug = ?`, slug)
	ref, err := scanRef(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: %s: %w", slug, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get: %w", err)
	}
	return &ref, nil
}

// List returns a page of references, newest first, plus the total count.
// An empty format matches every reference.
func (db *DB) List(limit, offset int, format string) ([]models.Reference, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM refs WHERE (? = '' OR format = ?)`, format, format).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT `+refColumns+`
		FROM refs
		WHERE (? = '' OR format = ?)
		ORDER BY retrieved_at DESC, slug
		LIMIT ? OFFSET ?
	`, format, format, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	out := []models.Reference{}
	for rows.Next() {
		ref, err := scanRef(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ref)
	}
	return out, total, rows.Err()
}

// AllChecksums returns slug → checksum for every catalogued reference.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT slug, checksum FROM refs`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var slug, cs string
		if err := rows.Scan(&slug, &cs); err != nil {
			return nil, err
		}
		out[slug] = cs
	}
	return out, rows.Err()
}

// Record catalogues a freshly archived reference. It lets *DB act as the
// archiver's recorder.
func (db *DB) Record(ctx context.Context, ref models.Reference, markdown []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.Upsert(ref, parser.Parse(markdown).Body)
}
