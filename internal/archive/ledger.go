package archive

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/starford/steno/internal/models"
	"github.com/starford/steno/internal/storage"
)

// AppendIndex adds one line for ref to the index in store, creating the
// index with its header first if needed. Existing lines are never touched,
// so archiving the same slug twice leaves two lines.
func AppendIndex(store storage.Provider, ref models.Reference) error {
	err := store.AppendLocked(IndexFile, func(existing []byte) ([]byte, error) {
		var add []byte
		switch {
		case len(existing) == 0:
			add = append(add, IndexHeader...)
		case !bytes.HasSuffix(existing, []byte("\n")):
			add = append(add, '\n')
		}
		return append(add, IndexLine(ref)...), nil
	})
	if err != nil {
		return fmt.Errorf("archive: append index: %w", err)
	}
	return nil
}

func bibKeyPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`@\w+\{\s*` + regexp.QuoteMeta(key) + `\s*,`)
}

// UpsertBib appends an entry for key to <latexDir>/src/references.bib unless
// an entry of any type with that key already exists. It reports whether an
// entry was added.
func UpsertBib(latexDir, key, title, url string, accessed time.Time) (bool, error) {
	store, err := storage.EnsureFS(filepath.Join(latexDir, "src"))
	if err != nil {
		return false, fmt.Errorf("archive: bib dir: %w", err)
	}

	added := false
	err = store.AppendLocked(BibFile, func(existing []byte) ([]byte, error) {
		if bibKeyPattern(key).Match(existing) {
			return nil, nil
		}
		added = true
		return []byte(BibEntry(key, title, url, accessed)), nil
	})
	if err != nil {
		return false, fmt.Errorf("archive: update bib: %w", err)
	}
	return added, nil
}

// ResolveLatexDir finds the typesetting directory of a project. An explicit
// override wins (relative paths are taken from root) but must exist. Next
// comes <root>/<paper>_latex, then the only *_latex directory in root.
// Anything else, including ambiguity, yields ok == false.
func ResolveLatexDir(root, paper, override string) (dir string, ok bool) {
	if override != "" {
		p := override
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		if _, err := os.Stat(p); err != nil {
			return "", false
		}
		return filepath.Clean(p), true
	}

	if paper != "" {
		candidate := filepath.Join(root, paper+"_latex")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	matches, err := filepath.Glob(filepath.Join(root, "*_latex"))
	if err != nil {
		return "", false
	}
	var dirs []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			dirs = append(dirs, m)
		}
	}
	sort.Strings(dirs)
	if len(dirs) != 1 {
		return "", false
	}
	return dirs[0], true
}
