//go:build sqlite_fts5

package index

import (
	"context"
	"fmt"
	"strings"
)

// Search runs an FTS5 phrase query against the indexer's chunk table and
// returns ranked snippets.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	conn, err := db.get(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, `
		SELECT path,
		       snippet(chunks_fts, 0, '', '', '…', 40)
		FROM chunks_fts
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, phrase(query), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}

// phrase quotes q as a single FTS5 phrase so user input cannot inject
// query operators.
func phrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}
