//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; full-text search uses LIKE fallback on the fragments.body column.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ string, _ int, _ string) error {
	// Body is already stored in the fragments table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string, _ int) {}

// Search performs a LIKE-based search over fragment text (fallback when FTS5
// is not compiled in). An empty projectID searches every project.
func (db *DB) Search(projectID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT project_id, seq, substr(body, 1, 200)
		FROM fragments
		WHERE body LIKE ? AND (? = '' OR project_id = ?)
		ORDER BY project_id, seq
		LIMIT ?
	`, like, projectID, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ProjectID, &r.Seq, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
