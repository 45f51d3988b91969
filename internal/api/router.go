package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memdash/internal/memoryservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events; it also accepts the
// token as ?access_token= so browser EventSource clients can authenticate.
func NewRouter(svc *memoryservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		// Corpus notes.
		r.Get("/memories", h.ListMemories)
		r.Get("/memories/*", h.GetMemory)
		r.Put("/memories/*", h.SaveMemory)

		// Index.
		r.Get("/search", h.Search)
		r.Get("/search/semantic", h.SemanticSearch)
		r.Get("/status", h.Status)

		// Analytics.
		r.Get("/dashboard", h.Dashboard)
		r.Get("/graph", h.Graph)
		r.Get("/tags", h.Tags)
	})

	if sseHandler != nil {
		r.With(StreamAuthMiddleware(authEnabled, token)).Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
