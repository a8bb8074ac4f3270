// Package models defines the domain types shared by the archive, catalog
// and front ends.
package models

import "time"

// Format is the archived representation of a fetched source.
type Format string

// Supported source formats.
const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Reference is one archived source. It is created once per archive run and
// only replaced by archiving again under the same slug.
type Reference struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	SourceURL   string    `json:"source_url"`
	Format      Format    `json:"format"`
	BibKey      string    `json:"bibkey,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
	Checksum    string    `json:"checksum,omitempty"`
}

// MarkdownFile returns the archive file name of the reference.
func (r Reference) MarkdownFile() string {
	return r.Slug + ".md"
}

// FileMeta is a lightweight description of a file in a storage root.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
