//go:build !sqlite_fts5

package index

import (
	"context"
	"fmt"
	"strings"
)

// Search performs a LIKE-based search over chunk text (fallback when FTS5 is
// not compiled in).
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
		SELECT path, substr(text, 1, 200)
		FROM chunks
		WHERE text LIKE ? ESCAPE '\'
		ORDER BY path
		LIMIT ?
	`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}

func escapeLike(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(q)
}
