package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/starford/steno/internal/catalog"
	"github.com/starford/steno/internal/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printReferences(w io.Writer, refs []models.Reference, total int) {
	if len(refs) == 0 {
		fmt.Fprintln(w, "no references archived")
		return
	}
	rows := make([][]string, 0, len(refs))
	for _, r := range refs {
		retrieved := ""
		if !r.RetrievedAt.IsZero() {
			retrieved = r.RetrievedAt.UTC().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{r.Slug, string(r.Format), r.Title, r.BibKey, retrieved})
	}
	fmt.Fprintln(w, renderTable([]string{"Slug", "Format", "Title", "Bib key", "Retrieved (UTC)"}, rows, nil))
	fmt.Fprintf(w, "%d of %d\n", len(refs), total)
}

func printSearch(w io.Writer, results []catalog.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no matches")
		return
	}
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Slug, r.Title, oneLine(r.Snippet)})
	}
	fmt.Fprintln(w, renderTable([]string{"#", "Slug", "Title", "Snippet"}, rows, []columnAlignment{alignRight}))
}

func printStats(w io.Writer, stats catalog.SyncStats) {
	rows := [][]string{
		{"indexed", strconv.Itoa(stats.Indexed)},
		{"unchanged", strconv.Itoa(stats.Unchanged)},
		{"removed", strconv.Itoa(stats.Removed)},
	}
	fmt.Fprintln(w, renderTable([]string{"References", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
