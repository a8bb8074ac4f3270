package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/steno/internal/refservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *refservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// References.
	r.Get("/references", h.ListReferences)
	r.Post("/references", h.AddReference)
	r.Get("/references/{slug}", h.GetReference)
	r.Get("/references/{slug}/html", h.GetReferenceHTML)
	r.Get("/references/{slug}/pdf", h.GetReferencePDF)

	// Search and catalog.
	r.Get("/search", h.Search)
	r.Post("/reindex", h.Reindex)

	// Manuscript.
	r.Post("/sync", h.Sync)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
