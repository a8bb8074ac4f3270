package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/steno/internal/models"
)

// TimeLayout is the UTC retrieval timestamp format used in headers and the
// index.
const TimeLayout = "2006-01-02T15:04:05Z"

// Archive file names and fixed text.
const (
	IndexFile      = "index.md"
	IndexHeader    = "# References (local archive)\n\n## Index\n\n"
	BibFile        = "references.bib"
	EmptyPDFNotice = "PDF saved alongside this file. Text extraction produced empty output.\n"
)

// Header renders the structured preamble and title heading that precede the
// extracted text of an archived reference.
func Header(ref models.Reference) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "source_url: %s\n", ref.SourceURL)
	fmt.Fprintf(&b, "retrieved_utc: %s\n", ref.RetrievedAt.UTC().Format(TimeLayout))
	fmt.Fprintf(&b, "format: %s\n", ref.Format)
	if ref.BibKey != "" {
		fmt.Fprintf(&b, "bibkey: %s\n", ref.BibKey)
	}
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", ref.Title)
	return b.String()
}

// IndexLine renders the index bullet for ref, newline included.
func IndexLine(ref models.Reference) string {
	line := fmt.Sprintf("- [%s](./%s) — <%s>", ref.Title, ref.MarkdownFile(), ref.SourceURL)
	if ref.BibKey != "" {
		line += fmt.Sprintf(" (`%s`)", ref.BibKey)
	}
	return line + " — retrieved " + ref.RetrievedAt.UTC().Format(TimeLayout) + "\n"
}

// BibEntry renders an @online entry. Only the date part of accessed is kept.
func BibEntry(key, title, url string, accessed time.Time) string {
	return fmt.Sprintf("@online{%s,\n  title   = {%s},\n  url     = {%s},\n  urldate = {%s},\n}\n\n",
		key, title, url, accessed.UTC().Format(time.DateOnly))
}
