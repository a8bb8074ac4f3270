// Package parser reads archived reference files back: the structured header,
// the title heading and the extracted body.
package parser

import (
	"bytes"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/starford/steno/internal/models"
)

const retrievedLayout = "2006-01-02T15:04:05Z"

// Header is the structured preamble of an archived reference.
type Header struct {
	SourceURL string `yaml:"source_url"`
	Retrieved string `yaml:"retrieved_utc"`
	Format    string `yaml:"format"`
	BibKey    string `yaml:"bibkey"`
}

// Result holds the output of parsing a reference file.
type Result struct {
	Header    Header
	HasHeader bool
	Title     string
	Body      string
}

// Parse splits data into header, title and body. A missing or malformed
// header leaves the whole content as body.
func Parse(data []byte) *Result {
	var h Header
	rest, err := frontmatter.Parse(bytes.NewReader(data), &h)
	res := &Result{}
	if err != nil || len(rest) == len(data) {
		res.Body = string(data)
	} else {
		res.Header = h
		res.HasHeader = true
		res.Body = string(rest)
	}
	res.Title, res.Body = splitTitle(res.Body)
	return res
}

// RetrievedAt parses the retrieval timestamp; the zero time is returned when
// it is missing or malformed.
func (r *Result) RetrievedAt() time.Time {
	t, err := time.Parse(retrievedLayout, strings.TrimSpace(r.Header.Retrieved))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Reference builds the catalog view of the parsed file stored under slug.
func (r *Result) Reference(slug string) models.Reference {
	title := r.Title
	if title == "" {
		title = slug
	}
	return models.Reference{
		Slug:        slug,
		Title:       title,
		SourceURL:   r.Header.SourceURL,
		Format:      models.Format(r.Header.Format),
		BibKey:      r.Header.BibKey,
		RetrievedAt: r.RetrievedAt(),
	}
}

// splitTitle returns the text of the first H1 heading and the body that
// follows it. Without a heading the body is returned unchanged.
func splitTitle(body string) (string, string) {
	lines := strings.SplitAfter(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "# ") {
			return "", body
		}
		rest := strings.Join(lines[i+1:], "")
		return strings.TrimSpace(trimmed[2:]), strings.TrimLeft(rest, "\r\n")
	}
	return "", body
}
