package texsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const manuscript = `# Sync Test

*Author*: A. Writer

## Abstract

Short abstract.

## 1. Introduction

Hello & welcome.

## References
`

func setup(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	layout := Locate(root, "paper")
	if err := os.MkdirAll(layout.SourceDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(layout.Manuscript, []byte(manuscript), 0o644); err != nil {
		t.Fatal(err)
	}
	return layout.Manuscript, layout.SourceDir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestSync_WritesFragments(t *testing.T) {
	md, src := setup(t)

	res, err := New(nil).Sync(context.Background(), md, src)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(res.Written) != 3 || len(res.Changed) != 3 {
		t.Errorf("written=%v changed=%v, want all three", res.Written, res.Changed)
	}

	meta := readFile(t, filepath.Join(src, MetaFile))
	if meta != "\\title{Sync Test}\n\\author{A. Writer}\n\\date{\\today}\n" {
		t.Errorf("meta = %q", meta)
	}
	if got := readFile(t, filepath.Join(src, AbstractFile)); got != "Short abstract.\n" {
		t.Errorf("abstract = %q", got)
	}
	content := readFile(t, filepath.Join(src, ContentFile))
	if !strings.Contains(content, `\section{Introduction}`) || !strings.Contains(content, `Hello \& welcome.`) {
		t.Errorf("content = %q", content)
	}
}

func TestSync_IdempotentOutput(t *testing.T) {
	md, src := setup(t)
	s := New(nil)

	if _, err := s.Sync(context.Background(), md, src); err != nil {
		t.Fatal(err)
	}
	first := map[string]string{}
	for _, name := range []string{MetaFile, AbstractFile, ContentFile} {
		first[name] = readFile(t, filepath.Join(src, name))
	}

	res, err := s.Sync(context.Background(), md, src)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changed) != 0 {
		t.Errorf("changed = %v on unchanged input", res.Changed)
	}
	for name, want := range first {
		if got := readFile(t, filepath.Join(src, name)); got != want {
			t.Errorf("%s differs between runs", name)
		}
	}
}

func TestSync_MissingManuscriptFailsLoudly(t *testing.T) {
	_, src := setup(t)
	_, err := New(nil).Sync(context.Background(), filepath.Join(t.TempDir(), "nope.md"), src)
	if !errors.Is(err, ErrReadManuscript) {
		t.Fatalf("err = %v, want ErrReadManuscript", err)
	}
	if _, statErr := os.Stat(filepath.Join(src, MetaFile)); statErr == nil {
		t.Error("fragments written despite unreadable manuscript")
	}
}

func TestSync_MissingSourceDir(t *testing.T) {
	md, _ := setup(t)
	if _, err := New(nil).Sync(context.Background(), md, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing source dir")
	}
}

func TestLocate(t *testing.T) {
	l := Locate("/proj", "paper")
	if l.Manuscript != filepath.Join("/proj", "paper.md") {
		t.Errorf("Manuscript = %q", l.Manuscript)
	}
	if l.SourceDir != filepath.Join("/proj", "paper_latex", "src") {
		t.Errorf("SourceDir = %q", l.SourceDir)
	}
	if l.BuildPDF != filepath.Join("/proj", "paper_latex", "build", "paper.pdf") {
		t.Errorf("BuildPDF = %q", l.BuildPDF)
	}
	if l.PublishedPDF != filepath.Join("/proj", "paper.pdf") {
		t.Errorf("PublishedPDF = %q", l.PublishedPDF)
	}
}
