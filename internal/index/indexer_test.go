package index

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeIndexer writes a shell script standing in for the indexer binary.
func fakeIndexer(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture requires a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "indexer")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin
}

func TestIndexer_ReindexSuccess(t *testing.T) {
	bin := fakeIndexer(t, `[ "$1 $2" = "memory index" ] || exit 2; echo "indexed 3 files"`)
	ix := NewIndexer(bin, 0, 0)

	res := ix.Reindex(context.Background())
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Output != "indexed 3 files" {
		t.Errorf("output = %q", res.Output)
	}
}

func TestIndexer_ReindexFailure(t *testing.T) {
	bin := fakeIndexer(t, `echo "database locked" >&2; exit 1`)
	ix := NewIndexer(bin, 0, 0)

	res := ix.Reindex(context.Background())
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Output, "database locked") {
		t.Errorf("output should carry stderr, got %q", res.Output)
	}
}

func TestIndexer_ReindexTimeout(t *testing.T) {
	bin := fakeIndexer(t, `exec sleep 5`)
	ix := NewIndexer(bin, 100*time.Millisecond, 0)

	res := ix.Reindex(context.Background())
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(res.Output, "timed out") {
		t.Errorf("output = %q", res.Output)
	}
}

func TestIndexer_MissingBinary(t *testing.T) {
	ix := NewIndexer(filepath.Join(t.TempDir(), "nope"), 0, 0)
	if res := ix.Reindex(context.Background()); res.Success {
		t.Error("expected failure for missing binary")
	}
}

func TestIndexer_SemanticSearch(t *testing.T) {
	bin := fakeIndexer(t, `[ "$1 $2 $4" = "memory search --json" ] || exit 2; echo '[{"path":"MEMORY.md","score":0.9,"q":"'"$3"'"}]'`)
	ix := NewIndexer(bin, 0, 0)

	raw, err := ix.SemanticSearch(context.Background(), "gateway")
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if !strings.Contains(string(raw), `"q":"gateway"`) {
		t.Errorf("raw = %s", raw)
	}
}

func TestIndexer_SemanticSearchInvalidJSON(t *testing.T) {
	bin := fakeIndexer(t, `echo "not json"`)
	ix := NewIndexer(bin, 0, 0)

	if _, err := ix.SemanticSearch(context.Background(), "x"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestIndexer_SemanticSearchEmptyQuery(t *testing.T) {
	ix := NewIndexer("/nonexistent", 0, 0)
	raw, err := ix.SemanticSearch(context.Background(), "  ")
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if string(raw) != "[]" {
		t.Errorf("raw = %s", raw)
	}
}
