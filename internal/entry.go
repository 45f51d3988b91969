// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/memdash/internal/analytics"
	"github.com/starford/memdash/internal/api"
	"github.com/starford/memdash/internal/index"
	"github.com/starford/memdash/internal/mcpserver"
	"github.com/starford/memdash/internal/memoryservice"
	"github.com/starford/memdash/internal/sse"
	"github.com/starford/memdash/internal/storage"
	pkgconfig "github.com/starford/memdash/pkg/config"
)

// Analysis kinds accepted by Analyze.
const (
	AnalyzeGraph  = "graph"
	AnalyzeTags   = "tags"
	AnalyzeHealth = "health"
)

// components are the pieces shared by every entry point.
type components struct {
	logger  *slog.Logger
	store   *storage.FS
	db      *index.DB
	indexer *index.Indexer
	layout  storage.Layout
}

func (c *components) Close() {
	if err := c.db.Close(); err != nil {
		c.logger.Warn("close index", slog.String("error", err.Error()))
	}
}

func setup(opts []Option) (*application, *components, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	cfg.Workspace.Path = pkgconfig.ExpandHome(cfg.Workspace.Path)
	cfg.Index.SQLitePath = pkgconfig.ExpandHome(cfg.Index.SQLitePath)
	cfg.Analytics.VocabularyPath = pkgconfig.ExpandHome(cfg.Analytics.VocabularyPath)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.Index.SQLitePath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure workspace directory exists.
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create workspace dir: %w", err)
	}

	layout := storage.Layout{LongTermNote: cfg.Workspace.LongTermNote, DailyDir: cfg.Workspace.DailyDir}
	store, err := storage.NewFS(cfg.Workspace.Path, layout, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	return app, &components{
		logger:  logger,
		store:   store,
		db:      index.Open(cfg.Index.SQLitePath),
		indexer: index.NewIndexer(cfg.Index.IndexerBin, cfg.Index.IndexTimeout, cfg.Index.SearchTimeout),
		layout:  layout,
	}, nil
}

func newAnalyzer(cfg *Config) (*analytics.Analyzer, error) {
	vocab := analytics.DefaultVocabulary()
	if cfg.Analytics.VocabularyPath != "" {
		v, err := analytics.LoadVocabulary(cfg.Analytics.VocabularyPath)
		if err != nil {
			return nil, err
		}
		vocab = v
	}
	return analytics.New(vocab, analytics.Options{
		LongTermNote: cfg.Workspace.LongTermNote,
		DailyDir:     cfg.Workspace.DailyDir,
		StaleAfter:   time.Duration(cfg.Analytics.StaleAfterDays) * 24 * time.Hour,
		CoverageDays: cfg.Analytics.CoverageDays,
		TopTags:      cfg.Analytics.TopTags,
		SnippetCap:   cfg.Analytics.SnippetCap,
	}), nil
}

// Run starts the HTTP dashboard server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, c, err := setup(opts)
	if err != nil {
		return err
	}
	defer c.Close()
	cfg, logger := app.config, c.logger

	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return fmt.Errorf("init analytics: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	reindexer := index.NewReindexer(c.indexer, cfg.Index.ReindexDebounce, logger, func(res index.IndexResult) {
		broker.PublishIndexResult(res.Success, res.Output)
	})

	svc := memoryservice.New(c.store, analyzer, c.db,
		memoryservice.WithSemantic(c.indexer),
		memoryservice.WithReindex(reindexer),
		memoryservice.WithSearchLimit(cfg.Index.SearchLimit),
	)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.store.List(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"workspace unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the corpus: reindex on change and tell open dashboards.
	g.Go(func() error {
		err := index.Watch(gCtx, c.store.Root(), c.layout, reindexer, logger, broker.PublishMemoryEvent)
		if err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		return reindexer.Run(gCtx)
	})

	g.Go(func() error {
		return index.Schedule(gCtx, cfg.Index.ReindexSchedule, reindexer, logger)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams never finish on their own; close them first.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Shutdown returns once listeners are closed; stop the background workers too.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context after a clean shutdown.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, c, err := setup(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	analyzer, err := newAnalyzer(app.config)
	if err != nil {
		return fmt.Errorf("init analytics: %w", err)
	}
	svc := memoryservice.New(c.store, analyzer, c.db,
		memoryservice.WithSemantic(c.indexer),
		memoryservice.WithSearchLimit(app.config.Index.SearchLimit),
	)

	c.logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc, c.layout, app.version).ServeStdio()
}

// Analyze computes one analytics view over the corpus and writes it to w as JSON.
func Analyze(ctx context.Context, kind string, w io.Writer, opts ...Option) error {
	app, c, err := setup(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	analyzer, err := newAnalyzer(app.config)
	if err != nil {
		return fmt.Errorf("init analytics: %w", err)
	}
	svc := memoryservice.New(c.store, analyzer, c.db)

	var out any
	switch kind {
	case AnalyzeGraph:
		out, err = svc.EntityGraph(ctx)
	case AnalyzeTags:
		out, err = svc.TagIndex(ctx)
	case AnalyzeHealth:
		out, err = svc.Health(ctx)
	default:
		return fmt.Errorf("unknown analysis %q", kind)
	}
	if err != nil {
		return fmt.Errorf("analyze %s: %w", kind, err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
