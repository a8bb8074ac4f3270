// Package refservice coordinates the reference archive, its catalog and the
// manuscript sync for the CLI, HTTP and MCP front ends.
package refservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/steno/internal/apperr"
	"github.com/starford/steno/internal/archive"
	"github.com/starford/steno/internal/catalog"
	"github.com/starford/steno/internal/checksum"
	"github.com/starford/steno/internal/models"
	"github.com/starford/steno/internal/parser"
	"github.com/starford/steno/internal/sse"
	"github.com/starford/steno/internal/storage"
	"github.com/starford/steno/internal/texsync"
)

// ReferenceDetail is the full representation of an archived reference.
type ReferenceDetail struct {
	models.Reference
	Content string `json:"content"`
	Body    string `json:"body"`
	HasPDF  bool   `json:"has_pdf"`
}

// Archiver stores one reference.
type Archiver interface {
	Archive(ctx context.Context, req archive.Request) (*archive.Result, error)
}

// ErrCatalogDisabled is returned by operations that need the catalog when
// it is turned off.
var ErrCatalogDisabled = errors.New("refservice: catalog disabled")

// Notifier receives change notifications. *sse.Broker implements it.
type Notifier interface {
	Notify(kind, subject string)
}

// Project locates the paper inside the project root.
type Project struct {
	Root     string
	Paper    string
	LatexDir string
}

// Service coordinates storage, catalog, archiver and syncer.
type Service struct {
	store    storage.Provider
	db       catalog.Catalog
	archiver Archiver
	syncer   *texsync.Syncer
	project  Project
	md       goldmark.Markdown
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates a new reference service. db may be nil when the
// catalog is disabled; listing and search then scan the archive directly.
func NewService(store storage.Provider, db catalog.Catalog, a Archiver, syncer *texsync.Syncer, project Project, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		db:       db,
		archiver: a,
		syncer:   syncer,
		project:  project,
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   logger,
	}
}

// SetNotifier registers n to be told about archived references and synced
// manuscripts.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) notify(kind, subject string) {
	if s.notifier != nil {
		s.notifier.Notify(kind, subject)
	}
}

// AddReference archives the source described by req.
func (s *Service) AddReference(ctx context.Context, req archive.Request) (*archive.Result, error) {
	if req.Paper == "" {
		req.Paper = s.project.Paper
	}
	if req.LatexDir == "" && req.Paper == s.project.Paper {
		req.LatexDir = s.project.LatexDir
	}
	res, err := s.archiver.Archive(ctx, req)
	if err != nil {
		return nil, err
	}
	s.notify(sse.TypeReferenceArchived, res.Slug)
	return res, nil
}

// GetReference reads and parses one archived reference.
func (s *Service) GetReference(_ context.Context, slug string) (*ReferenceDetail, error) {
	data, err := s.read(slug)
	if err != nil {
		return nil, err
	}
	res := parser.Parse(data)
	ref := res.Reference(slug)
	ref.Checksum = checksum.Sum(data)
	return &ReferenceDetail{
		Reference: ref,
		Content:   string(data),
		Body:      res.Body,
		HasPDF:    s.store.Exists(slug + ".pdf"),
	}, nil
}

// PDFPath returns the absolute path of the archived PDF of slug.
func (s *Service) PDFPath(slug string) (string, error) {
	if slug == "" || archive.Slugify(slug) != slug {
		return "", fmt.Errorf("%w: bad slug %q", apperr.ErrInvalidInput, slug)
	}
	if !s.store.Exists(slug + ".pdf") {
		return "", apperr.ErrNotFound
	}
	return s.store.Path(slug + ".pdf")
}

// RenderHTML renders the reference Markdown (header excluded) as HTML.
func (s *Service) RenderHTML(ctx context.Context, slug string) ([]byte, error) {
	detail, err := s.GetReference(ctx, slug)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("<h1>")
	buf.WriteString(html.EscapeString(detail.Title))
	buf.WriteString("</h1>\n")
	if err := s.md.Convert([]byte(detail.Body), &buf); err != nil {
		return nil, fmt.Errorf("refservice: render %s: %w", slug, err)
	}
	return buf.Bytes(), nil
}

// ListReferences returns a page of references, newest first.
func (s *Service) ListReferences(_ context.Context, limit, offset int, format string) ([]models.Reference, int, error) {
	if s.db != nil {
		return s.db.List(limit, offset, format)
	}

	refs, err := s.scan()
	if err != nil {
		return nil, 0, err
	}
	filtered := refs[:0]
	for _, r := range refs {
		if format == "" || string(r.Format) == format {
			filtered = append(filtered, r)
		}
	}
	total := len(filtered)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	return filtered[offset:end], total, nil
}

// Search looks for query in titles, bib keys and bodies.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalidInput)
	}
	if s.db != nil {
		return s.db.Search(query, limit)
	}
	if limit <= 0 {
		limit = 20
	}

	refs, err := s.scan()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	out := []catalog.SearchResult{}
	for _, r := range refs {
		detail, err := s.GetReference(ctx, r.Slug)
		if err != nil {
			continue
		}
		hay := strings.ToLower(detail.Title + "\n" + detail.BibKey + "\n" + detail.Body)
		if !strings.Contains(hay, needle) {
			continue
		}
		out = append(out, catalog.SearchResult{Slug: r.Slug, Title: r.Title, Snippet: snippet(detail.Body)})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Reindex rebuilds the catalog from the archive directory.
func (s *Service) Reindex(_ context.Context) (catalog.SyncStats, error) {
	if s.db == nil {
		return catalog.SyncStats{}, ErrCatalogDisabled
	}
	return catalog.Sync(s.db, s.store, s.logger)
}

// SyncManuscript regenerates the LaTeX fragments of paper. An empty paper
// falls back to the configured one, then to the only *_latex directory of
// the project.
func (s *Service) SyncManuscript(ctx context.Context, paper string) (*texsync.Result, error) {
	layout, err := s.Layout(paper)
	if err != nil {
		return nil, err
	}
	res, err := s.syncer.Sync(ctx, layout.Manuscript, layout.SourceDir)
	if err != nil {
		return nil, err
	}
	if len(res.Changed) > 0 {
		s.notify(sse.TypeManuscriptSynced, layout.Name)
	}
	return res, nil
}

// Layout resolves the file layout of paper.
func (s *Service) Layout(paper string) (texsync.Layout, error) {
	if paper != "" && !archive.ValidPaper(paper) {
		return texsync.Layout{}, fmt.Errorf("%w: bad paper name %q", apperr.ErrInvalidInput, paper)
	}
	if paper == "" {
		paper = s.project.Paper
	}
	override := s.project.LatexDir
	if paper != s.project.Paper {
		override = ""
	}
	dir, ok := archive.ResolveLatexDir(s.project.Root, paper, override)
	if !ok {
		return texsync.Layout{}, fmt.Errorf("%w: cannot resolve the LaTeX directory of paper %q", apperr.ErrNotFound, paper)
	}
	if paper == "" {
		paper = strings.TrimSuffix(filepath.Base(dir), "_latex")
	}
	layout := texsync.Locate(s.project.Root, paper)
	layout.LatexDir = dir
	layout.SourceDir = filepath.Join(dir, "src")
	layout.BuildPDF = filepath.Join(dir, "build", paper+".pdf")
	return layout, nil
}

func (s *Service) read(slug string) ([]byte, error) {
	if slug == "" || archive.Slugify(slug) != slug {
		return nil, fmt.Errorf("%w: bad slug %q", apperr.ErrInvalidInput, slug)
	}
	if archive.ReservedSlug(slug) {
		return nil, apperr.ErrNotFound
	}
	data, err := s.store.Read(slug + ".md")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// scan parses every reference file in the archive.
func (s *Service) scan() ([]models.Reference, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	refs := []models.Reference{}
	for _, m := range metas {
		if m.Path == archive.IndexFile || strings.Contains(m.Path, "/") {
			continue
		}
		data, err := s.store.Read(m.Path)
		if err != nil {
			continue
		}
		ref := parser.Parse(data).Reference(strings.TrimSuffix(m.Path, ".md"))
		ref.Checksum = m.Checksum
		refs = append(refs, ref)
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if !refs[i].RetrievedAt.Equal(refs[j].RetrievedAt) {
			return refs[i].RetrievedAt.After(refs[j].RetrievedAt)
		}
		return refs[i].Slug < refs[j].Slug
	})
	return refs, nil
}

func snippet(body string) string {
	r := []rune(strings.TrimSpace(body))
	if len(r) > 200 {
		r = r[:200]
	}
	return string(r)
}
