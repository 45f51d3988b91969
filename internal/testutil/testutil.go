// Package testutil provides shared test helpers for setting up workspaces and index databases.
package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/memdash/internal/storage"
)

// Layout is the corpus layout used by tests.
var Layout = storage.Layout{LongTermNote: "MEMORY.md", DailyDir: "memory"}

// TestWorkspace creates a temporary workspace with an empty daily directory
// and a storage.FS rooted at it.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, Layout.DailyDir), 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(dir, Layout, nil)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteNote writes content to rel inside the workspace and optionally sets
// its modification time. A zero mod leaves the mtime untouched.
func WriteNote(t *testing.T, root, rel, content string, mod time.Time) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if !mod.IsZero() {
		if err := os.Chtimes(abs, mod, mod); err != nil {
			t.Fatal(err)
		}
	}
}

// Chunk is one row of fixture index content.
type Chunk struct {
	Path string
	Text string
}

// TestIndexDB creates an index database with the same tables the external
// indexer maintains, fills it with chunks, and returns its path. The FTS5
// table is created only when the driver was built with FTS5 support.
func TestIndexDB(t *testing.T, chunks []Chunk, lastIndexed string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.sqlite")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE files (path TEXT PRIMARY KEY, hash TEXT, mtime INTEGER, size INTEGER)`,
		`CREATE TABLE chunks (id INTEGER PRIMARY KEY, path TEXT, start_line INTEGER, end_line INTEGER, text TEXT)`,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	_, ftsErr := db.Exec(`CREATE VIRTUAL TABLE chunks_fts USING fts5(text, path UNINDEXED)`)

	sizes := map[string]int{}
	for _, c := range chunks {
		sizes[c.Path] += len(c.Text)
		if _, err := db.Exec(`INSERT INTO chunks (path, text) VALUES (?, ?)`, c.Path, c.Text); err != nil {
			t.Fatal(err)
		}
		if ftsErr == nil {
			if _, err := db.Exec(`INSERT INTO chunks_fts (text, path) VALUES (?, ?)`, c.Text, c.Path); err != nil {
				t.Fatal(err)
			}
		}
	}
	for p, size := range sizes {
		if _, err := db.Exec(`INSERT INTO files (path, hash, mtime, size) VALUES (?, '', 0, ?)`, p, size); err != nil {
			t.Fatal(err)
		}
	}
	if lastIndexed != "" {
		if _, err := db.Exec(`INSERT INTO meta (key, value) VALUES ('last_indexed', ?)`, lastIndexed); err != nil {
			t.Fatal(err)
		}
	}
	return path
}
