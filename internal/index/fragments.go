package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
)

// RecordFragment inserts or replaces a fragment row and its search entry.
// A fragment seen for the first time bumps the project's transcription count.
func (db *DB) RecordFragment(f models.FragmentInfo) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var exists int
	err = tx.QueryRow(`SELECT count(*) FROM fragments WHERE project_id = ? AND seq = ?`, f.ProjectID, f.Seq).Scan(&exists)
	if err != nil {
		return fmt.Errorf("index: lookup fragment: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO fragments (project_id, seq, ref, language, duration, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, seq) DO UPDATE SET
			ref      = excluded.ref,
			language = excluded.language,
			duration = excluded.duration,
			body     = excluded.body
	`, f.ProjectID, f.Seq, f.Ref, f.Language, f.Duration, f.Text, f.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert fragment: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, f.ProjectID, f.Seq, f.Text); err != nil {
		return err
	}

	if exists == 0 {
		_, err = tx.Exec(`UPDATE projects SET transcription_count = transcription_count + 1, updated_at = ? WHERE id = ?`,
			f.CreatedAt.UTC(), f.ProjectID)
		if err != nil {
			return fmt.Errorf("index: bump transcription count: %w", err)
		}
	}
	return tx.Commit()
}

const fragmentCols = `project_id, seq, ref, language, duration, body, created_at`

func scanFragment(s scanner) (*models.FragmentInfo, error) {
	var f models.FragmentInfo
	if err := s.Scan(&f.ProjectID, &f.Seq, &f.Ref, &f.Language, &f.Duration, &f.Text, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFragment returns one fragment, or apperr.ErrNotFound.
func (db *DB) GetFragment(projectID string, seq int) (*models.FragmentInfo, error) {
	f, err := scanFragment(db.conn.QueryRow(
		`SELECT `+fragmentCols+` FROM fragments WHERE project_id = ? AND seq = ?`, projectID, seq))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: fragment %s/%d: %w", projectID, seq, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get fragment: %w", err)
	}
	return f, nil
}

// ListFragments returns the fragments of a project ordered by sequence.
func (db *DB) ListFragments(projectID string) ([]models.FragmentInfo, error) {
	rows, err := db.conn.Query(`SELECT `+fragmentCols+` FROM fragments WHERE project_id = ? ORDER BY seq`, projectID)
	if err != nil {
		return nil, fmt.Errorf("index: list fragments: %w", err)
	}
	defer rows.Close()

	var out []models.FragmentInfo
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// DeleteFragment removes a fragment row and its search entry.
func (db *DB) DeleteFragment(projectID string, seq int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, projectID, seq)
	if _, err := tx.Exec(`DELETE FROM fragments WHERE project_id = ? AND seq = ?`, projectID, seq); err != nil {
		return fmt.Errorf("index: delete fragment: %w", err)
	}
	return tx.Commit()
}

// allFragmentRefs returns the ref of every indexed fragment.
func (db *DB) allFragmentRefs() (map[string]models.FragmentInfo, error) {
	rows, err := db.conn.Query(`SELECT ` + fragmentCols + ` FROM fragments`)
	if err != nil {
		return nil, fmt.Errorf("index: all fragments: %w", err)
	}
	defer rows.Close()
	out := make(map[string]models.FragmentInfo)
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		out[f.Ref] = *f
	}
	return out, rows.Err()
}
