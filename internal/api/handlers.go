package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/steno/internal/refservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *refservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *refservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListReferences handles GET /references.
//
//	@Summary		List archived references, newest first
//	@Tags			references
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			format	query		string	false	"Filter by format"	Enums(pdf, html)
//	@Success		200		{object}	ReferenceListResponse
//	@Security		BearerAuth
//	@Router			/references [get]
func (h *Handler) ListReferences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	refs, total, err := h.svc.ListReferences(r.Context(), limit, offset, q.Get("format"))
	if err != nil {
		writeError(w, "list references", err)
		return
	}
	writeJSON(w, http.StatusOK, ReferenceListResponse{References: refs, Total: total})
}

// GetReference handles GET /references/{slug}.
//
//	@Summary		Get one archived reference
//	@Tags			references
//	@Produce		json
//	@Param			slug	path		string	true	"Reference slug"
//	@Success		200		{object}	ReferenceDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/references/{slug} [get]
func (h *Handler) GetReference(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	ref, err := h.svc.GetReference(r.Context(), slug)
	if err != nil {
		writeError(w, "get reference", err, slog.String("slug", slug))
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// GetReferenceHTML handles GET /references/{slug}/html.
//
//	@Summary		Render an archived reference as HTML
//	@Tags			references
//	@Produce		html
//	@Param			slug	path		string	true	"Reference slug"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/references/{slug}/html [get]
func (h *Handler) GetReferenceHTML(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	out, err := h.svc.RenderHTML(r.Context(), slug)
	if err != nil {
		writeError(w, "render reference", err, slog.String("slug", slug))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// GetReferencePDF handles GET /references/{slug}/pdf.
//
//	@Summary		Download the archived PDF of a reference
//	@Tags			references
//	@Produce		application/pdf
//	@Param			slug	path	string	true	"Reference slug"
//	@Success		200		{file}	binary
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/references/{slug}/pdf [get]
func (h *Handler) GetReferencePDF(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	path, err := h.svc.PDFPath(slug)
	if err != nil {
		writeError(w, "get reference pdf", err, slog.String("slug", slug))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}

// AddReference handles POST /references.
//
//	@Summary		Fetch and archive a cited source
//	@Tags			references
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddReferenceRequest	true	"Source to archive"
//	@Success		201		{object}	AddReferenceResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/references [post]
func (h *Handler) AddReference(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AddReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.AddReference(r.Context(), req.archiveRequest())
	if err != nil {
		writeError(w, "add reference", err, slog.String("url", req.URL))
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Search handles GET /search.
//
//	@Summary		Search archived references
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Reindex handles POST /reindex.
//
//	@Summary		Rebuild the reference catalog from the archive
//	@Tags			search
//	@Produce		json
//	@Success		200	{object}	ReindexResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Reindex(r.Context())
	if err != nil {
		if errors.Is(err, refservice.ErrCatalogDisabled) {
			writeJSON(w, http.StatusConflict, errorBody("catalog disabled"))
			return
		}
		writeError(w, "reindex", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Sync handles POST /sync.
//
//	@Summary		Regenerate the LaTeX fragments of a paper
//	@Tags			manuscript
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SyncRequest	false	"Paper to sync"
//	@Success		200		{object}	SyncResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.SyncManuscript(r.Context(), req.Paper)
	if err != nil {
		writeError(w, "sync manuscript", err, slog.String("paper", req.Paper))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
