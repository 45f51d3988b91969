// Package memoryservice coordinates the note store, the analytics core and
// the external index behind one API used by both the HTTP and MCP surfaces.
package memoryservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/memdash/internal/analytics"
	"github.com/starford/memdash/internal/apperr"
	"github.com/starford/memdash/internal/checksum"
	"github.com/starford/memdash/internal/index"
	"github.com/starford/memdash/internal/models"
	"github.com/starford/memdash/internal/storage"
)

// MemoryDetail is a single note with its content.
type MemoryDetail struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Checksum string `json:"checksum"`
}

// Dashboard merges index totals with the corpus health report.
type Dashboard struct {
	index.Stats
	analytics.HealthReport
	IndexError string `json:"index_error,omitempty"`
}

// SemanticSearcher runs a semantic query through the external indexer.
type SemanticSearcher interface {
	SemanticSearch(ctx context.Context, query string) (json.RawMessage, error)
}

// Trigger schedules a reindex without blocking.
type Trigger interface {
	Trigger()
}

// Service is the application layer shared by the HTTP API and the MCP server.
type Service struct {
	store       storage.Provider
	analyzer    *analytics.Analyzer
	searcher    index.Searcher
	semantic    SemanticSearcher
	reindex     Trigger
	searchLimit int
	now         func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithSemantic enables semantic search.
func WithSemantic(s SemanticSearcher) Option {
	return func(svc *Service) { svc.semantic = s }
}

// WithReindex makes SaveMemory schedule a reindex.
func WithReindex(t Trigger) Option {
	return func(svc *Service) { svc.reindex = t }
}

// WithSearchLimit sets the default full-text result limit.
func WithSearchLimit(n int) Option {
	return func(svc *Service) { svc.searchLimit = n }
}

// WithClock overrides the time source used for health reports.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// New creates a Service. searcher may be nil when no index is configured.
func New(store storage.Provider, analyzer *analytics.Analyzer, searcher index.Searcher, opts ...Option) *Service {
	s := &Service{
		store:       store,
		analyzer:    analyzer,
		searcher:    searcher,
		searchLimit: 20,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ListMemories returns metadata for every corpus note, newest first.
func (s *Service) ListMemories(_ context.Context) ([]models.NoteMetadata, error) {
	metas, err := s.store.List()
	if err != nil {
		return nil, err
	}
	if metas == nil {
		metas = []models.NoteMetadata{}
	}
	return metas, nil
}

// GetMemory reads one note.
func (s *Service) GetMemory(_ context.Context, path string) (*MemoryDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	return &MemoryDetail{Path: path, Content: string(data), Checksum: checksum.Sum(data)}, nil
}

// SaveMemory writes a note, creating it if needed. When ifMatch is set the
// current content must hash to it, otherwise apperr.ErrConflict is returned.
func (s *Service) SaveMemory(_ context.Context, path string, content []byte, ifMatch string) (*MemoryDetail, error) {
	if ifMatch != "" {
		existing, err := s.store.Read(path)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return nil, fmt.Errorf("memoryservice: %s does not exist: %w", path, apperr.ErrConflict)
		case err != nil:
			return nil, err
		case !checksum.Matches(existing, ifMatch):
			return nil, fmt.Errorf("memoryservice: %s changed: %w", path, apperr.ErrConflict)
		}
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if s.reindex != nil {
		s.reindex.Trigger()
	}
	return &MemoryDetail{Path: path, Content: string(content), Checksum: checksum.Sum(content)}, nil
}

// EntityGraph builds the entity graph over the current corpus.
func (s *Service) EntityGraph(ctx context.Context) (analytics.Graph, error) {
	notes, err := s.store.Load(ctx)
	if err != nil {
		return analytics.Graph{}, err
	}
	return s.analyzer.BuildEntityGraph(notes), nil
}

// TagIndex builds the tag index over the current corpus.
func (s *Service) TagIndex(ctx context.Context) ([]analytics.TagEntry, error) {
	notes, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.analyzer.BuildTagIndex(notes), nil
}

// Health reports corpus health as of now.
func (s *Service) Health(_ context.Context) (analytics.HealthReport, error) {
	metas, err := s.store.List()
	if err != nil {
		return analytics.HealthReport{}, err
	}
	return s.analyzer.AnalyzeHealth(metas, s.now()), nil
}

// Dashboard combines corpus health with index totals. An unavailable index
// leaves the totals at zero and is reported in IndexError.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	health, err := s.Health(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{HealthReport: health}
	if s.searcher == nil {
		d.IndexError = apperr.ErrIndexUnavailable.Error()
		return d, nil
	}
	stats, err := s.searcher.Stats(ctx)
	if err != nil {
		d.IndexError = err.Error()
		return d, nil
	}
	d.Stats = stats
	return d, nil
}

// Search runs a full-text query. limit <= 0 uses the configured default.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []index.SearchResult{}, nil
	}
	if s.searcher == nil {
		return nil, apperr.ErrIndexUnavailable
	}
	if limit <= 0 {
		limit = s.searchLimit
	}
	return s.searcher.Search(ctx, query, limit)
}

// SemanticSearch delegates to the external indexer and returns its JSON.
func (s *Service) SemanticSearch(ctx context.Context, query string) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return json.RawMessage("[]"), nil
	}
	if s.semantic == nil {
		return nil, apperr.ErrIndexUnavailable
	}
	raw, err := s.semantic.SemanticSearch(ctx, query)
	if err != nil {
		return nil, errors.Join(apperr.ErrIndexUnavailable, err)
	}
	return raw, nil
}

// Status reports index coverage.
func (s *Service) Status(ctx context.Context) index.Status {
	if s.searcher == nil {
		return index.Status{Raw: apperr.ErrIndexUnavailable.Error()}
	}
	return s.searcher.Status(ctx)
}
