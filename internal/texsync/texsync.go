// Package texsync keeps the LaTeX fragments of a paper in sync with its
// Markdown manuscript.
package texsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/steno/internal/checksum"
	"github.com/starford/steno/internal/storage"
	"github.com/starford/steno/internal/texconv"
)

// ErrReadManuscript is returned when the manuscript cannot be read.
var ErrReadManuscript = errors.New("texsync: read manuscript")

// Fragment file names inside the LaTeX source directory.
const (
	MetaFile     = "meta.tex"
	AbstractFile = "abstract.tex"
	ContentFile  = "content.tex"
)

// Layout locates the files of one paper variant inside a project root:
// <paper>.md, <paper>_latex/src, <paper>_latex/build/<paper>.pdf and the
// published <paper>.pdf next to the manuscript.
type Layout struct {
	Name         string
	Manuscript   string
	LatexDir     string
	SourceDir    string
	BuildPDF     string
	PublishedPDF string
}

// Locate derives the Layout of paper under root.
func Locate(root, paper string) Layout {
	latexDir := filepath.Join(root, paper+"_latex")
	return Layout{
		Name:         paper,
		Manuscript:   filepath.Join(root, paper+".md"),
		LatexDir:     latexDir,
		SourceDir:    filepath.Join(latexDir, "src"),
		BuildPDF:     filepath.Join(latexDir, "build", paper+".pdf"),
		PublishedPDF: filepath.Join(root, paper+".pdf"),
	}
}

// Result describes one sync run.
type Result struct {
	Manuscript string            `json:"manuscript"`
	SourceDir  string            `json:"source_dir"`
	Fragments  texconv.Fragments `json:"-"`
	Written    []string          `json:"written"`
	Changed    []string          `json:"changed"`
}

// Syncer converts a manuscript and writes its fragments.
type Syncer struct {
	logger *slog.Logger
}

// New creates a Syncer.
func New(logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{logger: logger}
}

// Sync reads manuscriptPath and overwrites the three fragments in srcDir.
// Each fragment is replaced atomically; srcDir must already exist.
func (s *Syncer) Sync(ctx context.Context, manuscriptPath, srcDir string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(manuscriptPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadManuscript, err)
	}

	store, err := storage.NewFS(srcDir)
	if err != nil {
		return nil, fmt.Errorf("texsync: source dir: %w", err)
	}

	frags := texconv.Convert(string(data))
	outputs := []struct {
		name    string
		content string
	}{
		{MetaFile, frags.Meta()},
		{AbstractFile, frags.Abstract + "\n"},
		{ContentFile, frags.Body + "\n"},
	}

	res := &Result{Manuscript: manuscriptPath, SourceDir: store.Root(), Fragments: frags}
	for _, out := range outputs {
		content := []byte(out.content)
		prev, readErr := store.Read(out.name)
		if readErr != nil || !checksum.Equal(content, checksum.Sum(prev)) {
			res.Changed = append(res.Changed, out.name)
		}
		if err := store.Write(out.name, content); err != nil {
			return nil, fmt.Errorf("texsync: write %s: %w", out.name, err)
		}
		res.Written = append(res.Written, out.name)
	}

	s.logger.Debug("sync: fragments written",
		slog.String("manuscript", manuscriptPath),
		slog.String("src", store.Root()),
		slog.Int("changed", len(res.Changed)))
	return res, nil
}
