package api

import (
	"github.com/starford/memdash/internal/analytics"
	"github.com/starford/memdash/internal/index"
	"github.com/starford/memdash/internal/memoryservice"
	"github.com/starford/memdash/internal/models"
)

// SaveMemoryRequest is the request body for writing a note.
// Content is a pointer so an explicit empty string can clear a note.
type SaveMemoryRequest struct {
	Content *string `json:"content" example:"# 2024-03-10\nShipped the gateway" validate:"required"`
}

// MemoryFile is one entry of the note listing (aliased from the domain layer).
type MemoryFile = models.NoteMetadata

// MemoryDetail is the full note response type (aliased from the domain layer).
type MemoryDetail = memoryservice.MemoryDetail

// SearchResult is a single full-text hit.
type SearchResult = index.SearchResult

// StatusResponse reports index coverage.
type StatusResponse = index.Status

// DashboardResponse merges index totals and corpus health.
type DashboardResponse = memoryservice.Dashboard

// GraphResponse is the entity co-occurrence graph.
type GraphResponse = analytics.Graph

// TagEntry is one row of the tag index.
type TagEntry = analytics.TagEntry
