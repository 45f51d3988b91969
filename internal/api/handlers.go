package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memdash/internal/checksum"
	"github.com/starford/memdash/internal/memoryservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *memoryservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *memoryservice.Service) *Handler {
	return &Handler{svc: svc}
}

// memoryPath extracts the note path from the URL (everything after /api/memories/).
// Supports encoded slashes from OpenAPI clients (e.g. memory%2F2024-01-01.md).
func memoryPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListMemories handles GET /api/memories.
//
//	@Summary		List the long-term note and daily notes, newest first
//	@Tags			memories
//	@Produce		json
//	@Success		200	{array}	MemoryFile
//	@Security		BearerAuth
//	@Router			/memories [get]
func (h *Handler) ListMemories(w http.ResponseWriter, r *http.Request) {
	metas, err := h.svc.ListMemories(r.Context())
	if err != nil {
		writeError(w, "list memories", err)
		return
	}
	writeJSON(w, http.StatusOK, metas)
}

// GetMemory handles GET /api/memories/*.
//
//	@Summary		Read a single note
//	@Tags			memories
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	MemoryDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memories/{path} [get]
func (h *Handler) GetMemory(w http.ResponseWriter, r *http.Request) {
	path := memoryPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	m, err := h.svc.GetMemory(r.Context(), path)
	if err != nil {
		writeError(w, "get memory", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(m.Checksum))
	writeJSON(w, http.StatusOK, m)
}

// SaveMemory handles PUT /api/memories/*.
//
//	@Summary		Write a note, optionally guarded by its checksum
//	@Tags			memories
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Note path"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		SaveMemoryRequest	true	"New content"
//	@Success		200			{object}	MemoryDetail
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/memories/{path} [put]
func (h *Handler) SaveMemory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := memoryPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	var req SaveMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	m, err := h.svc.SaveMemory(r.Context(), path, []byte(*req.Content), r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "save memory", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(m.Checksum))
	writeJSON(w, http.StatusOK, m)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search over the external index
//	@Tags			search
//	@Produce		json
//	@Param			q		query	string	false	"Search query; empty returns []"
//	@Param			limit	query	int		false	"Max results"
//	@Success		200		{array}	SearchResult
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// SemanticSearch handles GET /api/search/semantic.
//
//	@Summary		Semantic search through the indexer binary
//	@Tags			search
//	@Produce		json
//	@Param			q	query	string	false	"Search query; empty returns []"
//	@Success		200
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search/semantic [get]
func (h *Handler) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	raw, err := h.svc.SemanticSearch(r.Context(), q)
	if err != nil {
		writeError(w, "semantic search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

// Status handles GET /api/status.
//
//	@Summary		Index coverage
//	@Tags			search
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status(r.Context()))
}

// Dashboard handles GET /api/dashboard.
//
//	@Summary		Corpus health merged with index totals
//	@Tags			analytics
//	@Produce		json
//	@Success		200	{object}	DashboardResponse
//	@Security		BearerAuth
//	@Router			/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Graph handles GET /api/graph.
//
//	@Summary		Entity co-occurrence graph
//	@Tags			analytics
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.EntityGraph(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Tags handles GET /api/tags.
//
//	@Summary		Most frequent heading and bold phrases
//	@Tags			analytics
//	@Produce		json
//	@Success		200	{array}	TagEntry
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.TagIndex(r.Context())
	if err != nil {
		writeError(w, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}
