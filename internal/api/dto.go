package api

import (
	"github.com/starford/steno/internal/archive"
	"github.com/starford/steno/internal/catalog"
	"github.com/starford/steno/internal/models"
	"github.com/starford/steno/internal/refservice"
	"github.com/starford/steno/internal/texsync"
)

// AddReferenceRequest is the request body for archiving a source. The
// bibliography always goes to the paper's own <paper>_latex directory, so
// unlike the CLI there is no latex_dir override.
type AddReferenceRequest struct {
	URL       string `json:"url" example:"https://example.org/paper.pdf" validate:"required"`
	Title     string `json:"title,omitempty"`
	Slug      string `json:"slug,omitempty"`
	BibKey    string `json:"bibkey,omitempty" example:"smith2020"`
	UpdateBib bool   `json:"update_bib,omitempty"`
	Paper     string `json:"paper,omitempty" example:"paper"`
}

func (r AddReferenceRequest) archiveRequest() archive.Request {
	return archive.Request{
		URL:       r.URL,
		Title:     r.Title,
		Slug:      r.Slug,
		BibKey:    r.BibKey,
		UpdateBib: r.UpdateBib,
		Paper:     r.Paper,
	}
}

// AddReferenceResponse is returned after a source was archived.
type AddReferenceResponse = archive.Result

// ReferenceDetail is the full reference response type (aliased from the domain layer).
type ReferenceDetail = refservice.ReferenceDetail

// ReferenceListResponse wraps paginated reference listings.
type ReferenceListResponse struct {
	References []models.Reference `json:"references" validate:"required"`
	Total      int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []catalog.SearchResult `json:"results" validate:"required"`
}

// SyncRequest is the request body for regenerating LaTeX fragments.
type SyncRequest struct {
	Paper string `json:"paper,omitempty" example:"paper"`
}

// SyncResponse is the result of a manuscript sync.
type SyncResponse = texsync.Result

// ReindexResponse reports what a catalog rebuild did.
type ReindexResponse = catalog.SyncStats
