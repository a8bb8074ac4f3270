// Package extract turns fetched sources into readable Markdown. PDFs and
// HTML pages each go through an ordered chain of strategies, richest first,
// where a failing strategy only hands over to the next one.
package extract

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	"github.com/starford/steno/internal/models"
)

// ErrEmptyOutput is returned by a strategy that ran but produced nothing.
var ErrEmptyOutput = errors.New("extract: empty output")

var pdfMagic = []byte("%PDF")

// Classify decides whether a fetched body is a PDF or an HTML document.
// Checks run in order: content type, URL path suffix, magic bytes.
func Classify(rawURL, contentType string, body []byte) models.Format {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return models.FormatPDF
	}
	if u, err := url.Parse(rawURL); err == nil && strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return models.FormatPDF
	}
	if bytes.HasPrefix(body, pdfMagic) {
		return models.FormatPDF
	}
	return models.FormatHTML
}
