// Package archive keeps a local, human-readable copy of every cited source:
// one Markdown file per reference (plus the original PDF), an append-only
// index and, optionally, a bibliography entry in the paper's LaTeX tree.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/starford/steno/internal/apperr"
	"github.com/starford/steno/internal/checksum"
	"github.com/starford/steno/internal/extract"
	"github.com/starford/steno/internal/fetch"
	"github.com/starford/steno/internal/models"
	"github.com/starford/steno/internal/storage"
)

// DefaultTitle is used for a PDF whose URL has no usable file name.
const DefaultTitle = "Reference"

// Recorder is notified after each successful archive run.
type Recorder interface {
	Record(ctx context.Context, ref models.Reference, markdown []byte) error
}

// Result describes one archived reference.
type Result struct {
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Format      models.Format `json:"format"`
	Markdown    string        `json:"md"`
	PDF         string        `json:"pdf,omitempty"`
	BibKey      string        `json:"bibkey,omitempty"`
	BibUpdated  bool          `json:"bib_updated"`
	Extractor   string        `json:"extractor,omitempty"`
	RetrievedAt time.Time     `json:"retrieved_at"`
}

// Archiver fetches, extracts and stores references.
type Archiver struct {
	fetcher  fetch.Fetcher
	pdf      *extract.PDFChain
	html     *extract.HTMLChain
	store    storage.Provider
	root     string
	recorder Recorder
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithRecorder registers a Recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Archiver) { a.recorder = r }
}

// WithClock overrides the time source used for retrieval timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archiver) { a.logger = l }
}

// New creates an Archiver that stores references in store and resolves the
// typesetting directory relative to projectRoot.
func New(f fetch.Fetcher, pdf *extract.PDFChain, html *extract.HTMLChain, store storage.Provider, projectRoot string, opts ...Option) *Archiver {
	a := &Archiver{
		fetcher: f,
		pdf:     pdf,
		html:    html,
		store:   store,
		root:    projectRoot,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Archive runs the whole pipeline for req. A fetch failure returns before
// anything is written. Extraction never fails the run; a bibliography
// update is skipped when no LaTeX directory can be resolved.
func (a *Archiver) Archive(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}

	resp, err := a.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	ref := models.Reference{
		SourceURL:   req.URL,
		BibKey:      req.BibKey,
		RetrievedAt: a.now().UTC().Truncate(time.Second),
		Format:      extract.Classify(req.URL, resp.ContentType, resp.Body),
	}
	res := &Result{Format: ref.Format, BibKey: req.BibKey, RetrievedAt: ref.RetrievedAt}

	var body string
	switch ref.Format {
	case models.FormatPDF:
		ref.Title = req.Title
		if ref.Title == "" {
			ref.Title = titleFromURL(req.URL)
		}
		ref.Slug = slugFor(req, ref.Title)

		pdfName := ref.Slug + ".pdf"
		if err := a.store.Write(pdfName, resp.Body); err != nil {
			return nil, fmt.Errorf("archive: write pdf: %w", err)
		}
		pdfPath, err := a.store.Path(pdfName)
		if err != nil {
			return nil, err
		}
		res.PDF = pdfPath

		text, strategy := a.pdf.Extract(ctx, pdfPath)
		res.Extractor = strategy
		body = text
		if strings.TrimSpace(text) == "" {
			body = EmptyPDFNotice
		}

	default:
		page := strings.ToValidUTF8(string(resp.Body), "")
		doc := a.html.Extract(ctx, page, req.URL)
		ref.Title = req.Title
		if ref.Title == "" {
			ref.Title = doc.Title
		}
		ref.Slug = slugFor(req, ref.Title)
		res.Extractor = doc.Strategy
		body = doc.Markdown
	}

	content := []byte(Header(ref) + body)
	ref.Checksum = checksum.Sum(content)
	if err := a.store.Write(ref.MarkdownFile(), content); err != nil {
		return nil, fmt.Errorf("archive: write markdown: %w", err)
	}
	mdPath, err := a.store.Path(ref.MarkdownFile())
	if err != nil {
		return nil, err
	}
	res.Slug, res.Title, res.Markdown = ref.Slug, ref.Title, mdPath

	if err := AppendIndex(a.store, ref); err != nil {
		return nil, err
	}

	if req.UpdateBib && req.BibKey != "" {
		dir, ok := ResolveLatexDir(a.root, req.Paper, req.LatexDir)
		if !ok {
			a.logger.Info("archive: no latex dir, bib update skipped", slog.String("bibkey", req.BibKey))
		} else {
			added, err := UpsertBib(dir, req.BibKey, ref.Title, req.URL, ref.RetrievedAt)
			if err != nil {
				return nil, err
			}
			res.BibUpdated = added
		}
	}

	if a.recorder != nil {
		if err := a.recorder.Record(ctx, ref, content); err != nil {
			a.logger.Warn("archive: record failed",
				slog.String("slug", ref.Slug),
				slog.String("error", err.Error()))
		}
	}

	a.logger.Info("archive: stored",
		slog.String("slug", ref.Slug),
		slog.String("format", string(ref.Format)),
		slog.String("extractor", res.Extractor))
	return res, nil
}

// slugFor picks the file stem of a reference. A derived slug that would
// overwrite the index gets a "-1" suffix; an explicit one was already
// rejected by Validate.
func slugFor(req Request, title string) string {
	if req.Slug != "" {
		return req.Slug
	}
	slug := Slugify(title)
	if ReservedSlug(slug) {
		slug += "-1"
	}
	return slug
}

// titleFromURL returns the file name stem of the URL path, or DefaultTitle.
func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return DefaultTitle
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return DefaultTitle
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" {
		return DefaultTitle
	}
	return stem
}
