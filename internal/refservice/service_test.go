package refservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/steno/internal/apperr"
	"github.com/starford/steno/internal/archive"
	"github.com/starford/steno/internal/catalog"
	"github.com/starford/steno/internal/storage"
	"github.com/starford/steno/internal/testutil"
	"github.com/starford/steno/internal/texsync"
)

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(kind, subject string) {
	n.events = append(n.events, kind+":"+subject)
}

type recordingArchiver struct {
	got archive.Request
}

func (a *recordingArchiver) Archive(_ context.Context, req archive.Request) (*archive.Result, error) {
	a.got = req
	return &archive.Result{Slug: "x"}, nil
}

func newService(t *testing.T, withCatalog bool) (*Service, string, *recordingArchiver) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.EnsureFS(filepath.Join(root, "References"))
	if err != nil {
		t.Fatal(err)
	}
	var db catalog.Catalog
	if withCatalog {
		db = testutil.TestCatalog(t)
	}
	arch := &recordingArchiver{}
	svc := NewService(store, db, arch, texsync.New(nil), Project{Root: root, Paper: "paper"}, nil)
	return svc, root, arch
}

func writeRef(t *testing.T, root, slug, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, "References", slug+".md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const refOne = "---\nsource_url: https://one.org\nretrieved_utc: 2026-02-02T10:00:00Z\nformat: html\nbibkey: one2026\n---\n\n# First Source\n\nAlpha **bold** text.\n"
const refTwo = "---\nsource_url: https://two.org/p.pdf\nretrieved_utc: 2026-02-03T10:00:00Z\nformat: pdf\n---\n\n# Second Source\n\nBeta text.\n"

func TestGetReference(t *testing.T) {
	svc, root, _ := newService(t, false)
	writeRef(t, root, "one", refOne)

	d, err := svc.GetReference(context.Background(), "one")
	if err != nil {
		t.Fatalf("GetReference: %v", err)
	}
	if d.Title != "First Source" || d.BibKey != "one2026" || d.SourceURL != "https://one.org" {
		t.Errorf("detail = %+v", d)
	}
	if d.Body != "Alpha **bold** text.\n" || d.Content != refOne || d.HasPDF {
		t.Errorf("detail body/content/pdf = %q / %v", d.Body, d.HasPDF)
	}
}

func TestGetReference_Errors(t *testing.T) {
	svc, _, _ := newService(t, false)
	if _, err := svc.GetReference(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := svc.GetReference(context.Background(), "../etc/passwd"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("traversal: err = %v", err)
	}
}

func TestRenderHTML(t *testing.T) {
	svc, root, _ := newService(t, false)
	writeRef(t, root, "one", refOne)

	out, err := svc.RenderHTML(context.Background(), "one")
	if err != nil {
		t.Fatal(err)
	}
	html := string(out)
	if !strings.Contains(html, "<h1>First Source</h1>") || !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("html = %s", html)
	}
	if strings.Contains(html, "source_url") {
		t.Error("header leaked into the rendered body")
	}
}

func TestListAndSearch_WithoutCatalog(t *testing.T) {
	svc, root, _ := newService(t, false)
	writeRef(t, root, "one", refOne)
	writeRef(t, root, "two", refTwo)
	writeRef(t, root, "index", archive.IndexHeader)

	refs, total, err := svc.ListReferences(context.Background(), 10, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || refs[0].Slug != "two" || refs[1].Slug != "one" {
		t.Errorf("refs = %+v total=%d", refs, total)
	}

	pdfs, total, _ := svc.ListReferences(context.Background(), 10, 0, "pdf")
	if total != 1 || pdfs[0].Slug != "two" {
		t.Errorf("pdf refs = %+v", pdfs)
	}

	hits, err := svc.Search(context.Background(), "ALPHA", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Slug != "one" {
		t.Errorf("hits = %+v", hits)
	}
	if _, err := svc.Search(context.Background(), "  ", 10); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty query err = %v", err)
	}
}

func TestReindexAndCatalogSearch(t *testing.T) {
	svc, root, _ := newService(t, true)
	writeRef(t, root, "one", refOne)
	writeRef(t, root, "two", refTwo)

	stats, err := svc.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if stats.Indexed != 2 {
		t.Errorf("stats = %+v", stats)
	}
	hits, err := svc.Search(context.Background(), "Beta", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Slug != "two" {
		t.Errorf("hits = %+v", hits)
	}
	_, total, _ := svc.ListReferences(context.Background(), 10, 0, "")
	if total != 2 {
		t.Errorf("total = %d", total)
	}
}

func TestReindex_CatalogDisabled(t *testing.T) {
	svc, _, _ := newService(t, false)
	if _, err := svc.Reindex(context.Background()); !errors.Is(err, ErrCatalogDisabled) {
		t.Fatalf("err = %v, want ErrCatalogDisabled", err)
	}
}

func TestAddReference_DefaultsPaper(t *testing.T) {
	svc, _, arch := newService(t, false)
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	if _, err := svc.AddReference(context.Background(), archive.Request{URL: "https://x.org"}); err != nil {
		t.Fatal(err)
	}
	if arch.got.Paper != "paper" {
		t.Errorf("paper = %q", arch.got.Paper)
	}
	if len(n.events) != 1 || n.events[0] != "reference.archived:x" {
		t.Errorf("events = %v", n.events)
	}
}

func TestSyncManuscript(t *testing.T) {
	svc, root, _ := newService(t, false)
	src := filepath.Join(root, "paper_latex", "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "paper.md"), []byte("# T\n\n## 1. Intro\n\nHi.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	n := &recordingNotifier{}
	svc.SetNotifier(n)
	res, err := svc.SyncManuscript(context.Background(), "")
	if err != nil {
		t.Fatalf("SyncManuscript: %v", err)
	}
	if len(res.Written) != 3 {
		t.Errorf("written = %v", res.Written)
	}
	if _, err := svc.SyncManuscript(context.Background(), "paper"); err != nil {
		t.Fatal(err)
	}
	if len(n.events) != 1 || n.events[0] != "manuscript.synced:paper" {
		t.Errorf("events = %v, want one sync event", n.events)
	}
	content, _ := os.ReadFile(filepath.Join(src, texsync.ContentFile))
	if !strings.Contains(string(content), `\section{Intro}`) {
		t.Errorf("content = %q", content)
	}
}

func TestLayout_SoleLatexDir(t *testing.T) {
	root := t.TempDir()
	store, _ := storage.EnsureFS(filepath.Join(root, "References"))
	svc := NewService(store, nil, nil, texsync.New(nil), Project{Root: root}, nil)

	if _, err := svc.Layout(""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	_ = os.MkdirAll(filepath.Join(root, "thesis_latex"), 0o755)
	l, err := svc.Layout("")
	if err != nil {
		t.Fatal(err)
	}
	if l.Name != "thesis" || l.Manuscript != filepath.Join(root, "thesis.md") {
		t.Errorf("layout = %+v", l)
	}
}

func TestLayout_RejectsPathPaper(t *testing.T) {
	svc, root, _ := newService(t, false)
	_ = os.MkdirAll(filepath.Join(filepath.Dir(root), "x_latex"), 0o755)
	for _, paper := range []string{"../x", "a/b", ".."} {
		if _, err := svc.Layout(paper); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Layout(%q) err = %v, want ErrInvalidInput", paper, err)
		}
	}
}

func TestGetReference_IndexIsNotAReference(t *testing.T) {
	svc, root, _ := newService(t, false)
	writeRef(t, root, "index", archive.IndexHeader)
	if _, err := svc.GetReference(context.Background(), "index"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAddReference_LatexDirOnlyForConfiguredPaper(t *testing.T) {
	root := t.TempDir()
	store, _ := storage.EnsureFS(filepath.Join(root, "References"))
	arch := &recordingArchiver{}
	svc := NewService(store, nil, arch, texsync.New(nil), Project{Root: root, Paper: "paper", LatexDir: "build/tex"}, nil)

	if _, err := svc.AddReference(context.Background(), archive.Request{URL: "https://x.org"}); err != nil {
		t.Fatal(err)
	}
	if arch.got.LatexDir != "build/tex" {
		t.Errorf("configured paper latex dir = %q", arch.got.LatexDir)
	}
	if _, err := svc.AddReference(context.Background(), archive.Request{URL: "https://x.org", Paper: "other"}); err != nil {
		t.Fatal(err)
	}
	if arch.got.LatexDir != "" {
		t.Errorf("other paper inherited latex dir %q", arch.got.LatexDir)
	}
}
