// Package index is the read-only client for the external semantic index
// (an SQLite database maintained by a separate indexer binary) plus the
// plumbing that keeps that index fresh: the indexer runner, a debounced
// reindexer, a workspace watcher, and a cron scheduler.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/memdash/internal/apperr"
)

const defaultSearchLimit = 20

// SearchResult is one ranked full-text hit.
type SearchResult struct {
	File  string  `json:"file"`
	Chunk string  `json:"chunk"`
	Score float64 `json:"score"`
}

// Status summarizes how much of the corpus the index covers.
type Status struct {
	FilesIndexed int    `json:"files_indexed"`
	TotalFiles   int    `json:"total_files"`
	TotalChunks  int    `json:"total_chunks"`
	Raw          string `json:"raw"`
}

// Stats are the aggregate index figures shown on the dashboard.
type Stats struct {
	TotalFiles  int    `json:"total_files"`
	TotalSize   int64  `json:"total_size"`
	TotalChunks int    `json:"total_chunks"`
	LastIndexed string `json:"last_indexed"`
}

// Searcher is the query surface the rest of the application depends on.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Status(ctx context.Context) Status
	Stats(ctx context.Context) (Stats, error)
}

// Verify *DB satisfies Searcher at compile time.
var _ Searcher = (*DB)(nil)

// DB is a lazily opened, read-only connection to the external index.
// The file may not exist yet when the application starts, so the connection
// is established on first use and retried until it succeeds.
type DB struct {
	path string

	mu   sync.Mutex
	conn *sql.DB
}

// Open returns a DB for the index file at path. No I/O happens until the
// first query.
func Open(path string) *DB {
	return &DB{path: path}
}

// Path returns the index file location.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) get(ctx context.Context) (*sql.DB, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.conn != nil {
		return db.conn, nil
	}
	if _, err := os.Stat(db.path); err != nil {
		return nil, fmt.Errorf("index: %s: %w", db.path, errors.Join(apperr.ErrIndexUnavailable, err))
	}
	conn, err := sql.Open("sqlite3", "file:"+db.path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", errors.Join(apperr.ErrIndexUnavailable, err))
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", errors.Join(apperr.ErrIndexUnavailable, err))
	}
	db.conn = conn
	return conn, nil
}

// Close closes the underlying database connection, if one was opened.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.conn == nil {
		return nil
	}
	err := db.conn.Close()
	db.conn = nil
	return err
}

// Status reports index coverage. Failures are folded into Raw so callers can
// always render something.
func (db *DB) Status(ctx context.Context) Status {
	conn, err := db.get(ctx)
	if err != nil {
		return Status{Raw: err.Error()}
	}
	var files, chunks int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&files); err != nil {
		return Status{Raw: fmt.Sprintf("index: count files: %v", err)}
	}
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return Status{Raw: fmt.Sprintf("index: count chunks: %v", err)}
	}
	return Status{
		FilesIndexed: files,
		TotalFiles:   files,
		TotalChunks:  chunks,
		Raw:          fmt.Sprintf("%d files indexed, %d chunks", files, chunks),
	}
}

// Stats returns file, size, and chunk totals plus the last index time.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	conn, err := db.get(ctx)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`).Scan(&st.TotalFiles, &st.TotalSize); err != nil {
		return Stats{}, fmt.Errorf("index: stats files: %w", err)
	}
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&st.TotalChunks); err != nil {
		return Stats{}, fmt.Errorf("index: stats chunks: %w", err)
	}
	err = conn.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'last_indexed'`).Scan(&st.LastIndexed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Stats{}, fmt.Errorf("index: stats meta: %w", err)
	}
	return st, nil
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.File, &r.Chunk); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
