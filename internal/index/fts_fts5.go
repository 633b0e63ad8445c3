//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS fragments_fts USING fts5(
			project_id UNINDEXED,
			seq UNINDEXED,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, projectID string, seq int, body string) error {
	ftsDelete(tx, projectID, seq)
	_, err := tx.Exec(`INSERT INTO fragments_fts (project_id, seq, body) VALUES (?, ?, ?)`, projectID, seq, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, projectID string, seq int) {
	_, _ = tx.Exec(`DELETE FROM fragments_fts WHERE project_id = ? AND seq = ?`, projectID, seq)
}

// phrase quotes user input so FTS5 query syntax characters match literally.
func phrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

// Search performs an FTS5 full-text search over fragment text and returns
// matching fragments with snippets. An empty projectID searches every project.
func (db *DB) Search(projectID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT project_id,
		       seq,
		       snippet(fragments_fts, 2, '<b>', '</b>', '...', 32)
		FROM fragments_fts
		WHERE fragments_fts MATCH ? AND (? = '' OR project_id = ?)
		ORDER BY rank
		LIMIT ?
	`, phrase(query), projectID, projectID, limit)
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
