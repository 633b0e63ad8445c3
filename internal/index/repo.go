package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
)

// SearchResult represents one fragment search hit.
type SearchResult struct {
	ProjectID string `json:"project_id"`
	Seq       int    `json:"chunk_id"`
	Snippet   string `json:"snippet"`
}

type scanner interface {
	Scan(dest ...any) error
}

const projectCols = `id, name, description, chunk_count, transcription_count, checksum, created_at, updated_at`

func scanProject(s scanner) (*models.Project, error) {
	var p models.Project
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.ChunkCount, &p.TranscriptionCount,
		&p.DocumentChecksum, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject inserts a new project row.
// A duplicate id yields apperr.ErrAlreadyExists.
func (db *DB) CreateProject(p models.Project) error {
	_, err := db.conn.Exec(`
		INSERT INTO projects (id, name, description, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.DocumentChecksum, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("index: project %s: %w", p.ID, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("index: create project: %w", err)
	}
	return nil
}

// EnsureProject creates a placeholder row, named after the id, for a project
// found on disk but unknown to the index. Existing rows are left alone.
func (db *DB) EnsureProject(id string, at time.Time) error {
	_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO projects (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, id, id, at.UTC(), at.UTC())
	if err != nil {
		return fmt.Errorf("index: ensure project: %w", err)
	}
	return nil
}

// GetProject returns one project, or apperr.ErrNotFound.
func (db *DB) GetProject(id string) (*models.Project, error) {
	p, err := scanProject(db.conn.QueryRow(`SELECT `+projectCols+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: project %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get project: %w", err)
	}
	return p, nil
}

// FindProjectByName returns the most recently updated project with the given name.
func (db *DB) FindProjectByName(name string) (*models.Project, error) {
	p, err := scanProject(db.conn.QueryRow(
		`SELECT `+projectCols+` FROM projects WHERE name = ? ORDER BY updated_at DESC LIMIT 1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: project named %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: find project: %w", err)
	}
	return p, nil
}

// ListProjects returns every project, most recently updated first.
func (db *DB) ListProjects() ([]models.Project, error) {
	rows, err := db.conn.Query(`SELECT ` + projectCols + ` FROM projects ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("index: list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// BumpChunkCount records one more uploaded chunk.
func (db *DB) BumpChunkCount(id string, at time.Time) error {
	return db.updateProject(id, `UPDATE projects SET chunk_count = chunk_count + 1, updated_at = ? WHERE id = ?`, at.UTC(), id)
}

// TouchDocument records the checksum of a freshly written document.
func (db *DB) TouchDocument(id, checksum string, at time.Time) error {
	return db.updateProject(id, `UPDATE projects SET checksum = ?, updated_at = ? WHERE id = ?`, checksum, at.UTC(), id)
}

func (db *DB) updateProject(id, query string, args ...any) error {
	res, err := db.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("index: update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("index: project %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DocumentChecksums returns the last recorded document checksum per project.
func (db *DB) DocumentChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("index: document checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// RecordVersion inserts or replaces a snapshot record.
func (db *DB) RecordVersion(v models.Version) error {
	_, err := db.conn.Exec(`
		INSERT INTO versions (project_id, name, ref, checksum, captured_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, name) DO UPDATE SET
			ref         = excluded.ref,
			checksum    = excluded.checksum,
			captured_at = excluded.captured_at
	`, v.ProjectID, v.Name, v.Ref, v.Checksum, v.CapturedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: record version: %w", err)
	}
	return nil
}

// ListVersions returns the snapshots of a project, newest first. Snapshots
// captured at the same instant order by their numeric "-n" suffix.
func (db *DB) ListVersions(projectID string) ([]models.Version, error) {
	rows, err := db.conn.Query(`
		SELECT project_id, name, ref, checksum, captured_at
		FROM versions
		WHERE project_id = ?
		ORDER BY captured_at DESC, length(name) DESC, name DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("index: list versions: %w", err)
	}
	defer rows.Close()

	var out []models.Version
	for rows.Next() {
		var v models.Version
		if err := rows.Scan(&v.ProjectID, &v.Name, &v.Ref, &v.Checksum, &v.CapturedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteVersion removes a snapshot record.
func (db *DB) DeleteVersion(projectID, name string) error {
	if _, err := db.conn.Exec(`DELETE FROM versions WHERE project_id = ? AND name = ?`, projectID, name); err != nil {
		return fmt.Errorf("index: delete version: %w", err)
	}
	return nil
}

// allVersions returns every snapshot record keyed by ref.
func (db *DB) allVersions() (map[string]models.Version, error) {
	rows, err := db.conn.Query(`SELECT project_id, name, ref, checksum, captured_at FROM versions`)
	if err != nil {
		return nil, fmt.Errorf("index: all versions: %w", err)
	}
	defer rows.Close()
	out := make(map[string]models.Version)
	for rows.Next() {
		var v models.Version
		if err := rows.Scan(&v.ProjectID, &v.Name, &v.Ref, &v.Checksum, &v.CapturedAt); err != nil {
			return nil, err
		}
		out[v.Ref] = v
	}
	return out, rows.Err()
}
