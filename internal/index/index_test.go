package index_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/memdash/internal/apperr"
	"github.com/starford/memdash/internal/index"
	"github.com/starford/memdash/internal/testutil"
)

func fixtureDB(t *testing.T) *index.DB {
	t.Helper()
	path := testutil.TestIndexDB(t, []testutil.Chunk{
		{Path: "MEMORY.md", Text: "Long term notes about the openclaw gateway"},
		{Path: "memory/2024-01-01.md", Text: "Paired with Alice on the gateway rollout"},
		{Path: "memory/2024-01-01.md", Text: "Lunch, nothing notable"},
		{Path: "memory/2024-01-02.md", Text: "100% done with 50_50 split"},
	}, "2024-01-02T10:00:00Z")
	db := index.Open(path)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSearch_FindsChunks(t *testing.T) {
	db := fixtureDB(t)
	res, err := db.Search(context.Background(), "gateway", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(res), res)
	}
	files := map[string]bool{}
	for _, r := range res {
		files[r.File] = true
		if !strings.Contains(strings.ToLower(r.Chunk), "gateway") {
			t.Errorf("chunk %q does not contain the query", r.Chunk)
		}
	}
	if !files["MEMORY.md"] || !files["memory/2024-01-01.md"] {
		t.Errorf("unexpected files: %v", files)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	db := fixtureDB(t)
	res, err := db.Search(context.Background(), "   ", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", res)
	}
}

func TestSearch_Limit(t *testing.T) {
	db := fixtureDB(t)
	res, err := db.Search(context.Background(), "gateway", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 {
		t.Errorf("expected 1 result, got %d", len(res))
	}
}

func TestSearch_NoMatch(t *testing.T) {
	db := fixtureDB(t)
	res, err := db.Search(context.Background(), "kubernetes", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("expected no results, got %+v", res)
	}
}

func TestSearch_QuotesAreLiteral(t *testing.T) {
	db := fixtureDB(t)
	if _, err := db.Search(context.Background(), `gate"way OR *`, 10); err != nil {
		t.Errorf("operator characters should not break the query: %v", err)
	}
}

func TestStatus(t *testing.T) {
	db := fixtureDB(t)
	st := db.Status(context.Background())
	if st.FilesIndexed != 3 || st.TotalFiles != 3 {
		t.Errorf("files = %d/%d, want 3/3", st.FilesIndexed, st.TotalFiles)
	}
	if st.TotalChunks != 4 {
		t.Errorf("chunks = %d, want 4", st.TotalChunks)
	}
	if st.Raw == "" {
		t.Error("expected non-empty raw status")
	}
}

func TestStats(t *testing.T) {
	db := fixtureDB(t)
	st, err := db.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalFiles != 3 || st.TotalChunks != 4 {
		t.Errorf("stats = %+v", st)
	}
	if st.TotalSize <= 0 {
		t.Errorf("expected positive total size, got %d", st.TotalSize)
	}
	if st.LastIndexed != "2024-01-02T10:00:00Z" {
		t.Errorf("last indexed = %q", st.LastIndexed)
	}
}

func TestStats_NoMetaRow(t *testing.T) {
	path := testutil.TestIndexDB(t, []testutil.Chunk{{Path: "MEMORY.md", Text: "x"}}, "")
	db := index.Open(path)
	defer db.Close()

	st, err := db.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.LastIndexed != "" {
		t.Errorf("expected empty last indexed, got %q", st.LastIndexed)
	}
}

func TestMissingIndex(t *testing.T) {
	db := index.Open(filepath.Join(t.TempDir(), "missing.sqlite"))
	defer db.Close()
	ctx := context.Background()

	if _, err := db.Search(ctx, "x", 10); !errors.Is(err, apperr.ErrIndexUnavailable) {
		t.Errorf("Search: expected ErrIndexUnavailable, got %v", err)
	}
	if _, err := db.Stats(ctx); !errors.Is(err, apperr.ErrIndexUnavailable) {
		t.Errorf("Stats: expected ErrIndexUnavailable, got %v", err)
	}
	st := db.Status(ctx)
	if st.FilesIndexed != 0 || st.Raw == "" {
		t.Errorf("Status = %+v, want zero counts with a reason", st)
	}
}
