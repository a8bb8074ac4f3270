package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("\\section{Hello}\n")
	if err := s.Write("content.tex", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("content.tex")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
	if !s.Exists("content.tex") {
		t.Error("Exists = false after Write")
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))
	_ = s.Write(".tmp/hidden.md", []byte("hidden"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2 (%v)", len(items), items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, ErrPathEscape) {
			t.Errorf("Read(%q) err = %v, want ErrPathEscape", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".steno-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestAppendLocked(t *testing.T) {
	s := tempRoot(t)

	calls := 0
	build := func(existing []byte) ([]byte, error) {
		calls++
		if len(existing) == 0 {
			return []byte("header\n"), nil
		}
		return []byte("line\n"), nil
	}
	for i := 0; i < 3; i++ {
		if err := s.AppendLocked("index.md", build); err != nil {
			t.Fatalf("AppendLocked: %v", err)
		}
	}
	got, _ := s.Read("index.md")
	if string(got) != "header\nline\nline\n" {
		t.Errorf("content = %q", got)
	}
	if calls != 3 {
		t.Errorf("build called %d times, want 3", calls)
	}
}

func TestAppendLocked_EmptyAdditionSkipsWrite(t *testing.T) {
	s := tempRoot(t)
	err := s.AppendLocked("refs.bib", func([]byte) ([]byte, error) { return nil, nil })
	if err != nil {
		t.Fatalf("AppendLocked: %v", err)
	}
	if s.Exists("refs.bib") {
		t.Error("file created for an empty append")
	}
}

func TestAppendLocked_BuildErrorPropagates(t *testing.T) {
	s := tempRoot(t)
	boom := errors.New("boom")
	err := s.AppendLocked("x.md", func([]byte) ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestEnsureFS_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "References")
	s, err := EnsureFS(root)
	if err != nil {
		t.Fatalf("EnsureFS: %v", err)
	}
	if s.Root() != root {
		t.Errorf("Root = %q, want %q", s.Root(), root)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "steno-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
