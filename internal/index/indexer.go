package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// IndexResult reports the outcome of one indexer run.
type IndexResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

// Indexer shells out to the external indexer binary.
type Indexer struct {
	Bin           string
	IndexTimeout  time.Duration
	SearchTimeout time.Duration
}

// NewIndexer creates an Indexer with the given binary and timeouts.
func NewIndexer(bin string, indexTimeout, searchTimeout time.Duration) *Indexer {
	if indexTimeout <= 0 {
		indexTimeout = 30 * time.Second
	}
	if searchTimeout <= 0 {
		searchTimeout = 15 * time.Second
	}
	return &Indexer{Bin: bin, IndexTimeout: indexTimeout, SearchTimeout: searchTimeout}
}

// Reindex runs "<bin> memory index". The command's combined output is
// returned in either case; a failed run is reported through Success, not an error.
func (ix *Indexer) Reindex(ctx context.Context) IndexResult {
	ctx, cancel := context.WithTimeout(ctx, ix.IndexTimeout)
	defer cancel()

	stdout, stderr, err := ix.run(ctx, "memory", "index")
	if err != nil {
		return IndexResult{Success: false, Output: err.Error()}
	}
	return IndexResult{Success: true, Output: strings.TrimSpace(stdout + stderr)}
}

// SemanticSearch runs "<bin> memory search <query> --json" and returns the
// indexer's JSON verbatim.
func (ix *Indexer) SemanticSearch(ctx context.Context, query string) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return json.RawMessage("[]"), nil
	}
	ctx, cancel := context.WithTimeout(ctx, ix.SearchTimeout)
	defer cancel()

	stdout, _, err := ix.run(ctx, "memory", "search", query, "--json")
	if err != nil {
		return nil, fmt.Errorf("index: semantic search: %w", err)
	}
	raw := json.RawMessage(bytes.TrimSpace([]byte(stdout)))
	if !json.Valid(raw) {
		return nil, fmt.Errorf("index: semantic search: indexer returned invalid JSON")
	}
	return raw, nil
}

func (ix *Indexer) run(ctx context.Context, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ix.Bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", "", fmt.Errorf("%s %s: timed out", ix.Bin, strings.Join(args[:2], " "))
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", "", fmt.Errorf("%s %s: %w: %s", ix.Bin, strings.Join(args[:2], " "), err, msg)
		}
		return "", "", fmt.Errorf("%s %s: %w", ix.Bin, strings.Join(args[:2], " "), err)
	}
	return stdout.String(), stderr.String(), nil
}
