package index

import (
	"log/slog"
	"time"

	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/storage"
)

// Sync walks the data root and brings the index up to date:
//   - documents on disk get a project row and their current checksum
//   - fragments and snapshots missing from the index are recorded
//   - fragment and snapshot rows whose files are gone are removed
//
// Project rows are never deleted; their names and counters live only in the index.
func Sync(db *DB, files storage.Provider, logger *slog.Logger) error {
	store := docstore.New(files)

	docs, err := store.Documents()
	if err != nil {
		return err
	}
	checksums, err := db.DocumentChecksums()
	if err != nil {
		return err
	}
	for _, d := range docs {
		if checksums[d.ProjectID] == d.Checksum {
			continue
		}
		if err := touchDocument(db, d.ProjectID, d.Checksum, d.UpdatedAt); err != nil {
			logger.Warn("sync: document failed", slog.String("project_id", d.ProjectID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: document indexed", slog.String("project_id", d.ProjectID))
		}
	}

	if err := syncFragments(db, store, logger); err != nil {
		return err
	}
	return syncVersions(db, files, logger)
}

func syncFragments(db *DB, store *docstore.Store, logger *slog.Logger) error {
	frags, err := store.AllFragments()
	if err != nil {
		return err
	}
	indexed, err := db.allFragmentRefs()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(frags))
	for _, ff := range frags {
		disk[ff.Ref] = struct{}{}
		if _, ok := indexed[ff.Ref]; ok {
			continue
		}
		f, err := store.ReadFragment(ff.Ref)
		if err != nil {
			logger.Warn("sync: read fragment failed", slog.String("ref", ff.Ref), slog.String("error", err.Error()))
			continue
		}
		if err := db.EnsureProject(ff.ProjectID, ff.UpdatedAt); err != nil {
			return err
		}
		err = db.RecordFragment(models.FragmentInfo{
			ProjectID: ff.ProjectID,
			Seq:       ff.Seq,
			Text:      f.Text,
			Language:  f.Language,
			Duration:  f.Duration,
			Ref:       ff.Ref,
			CreatedAt: ff.UpdatedAt,
		})
		if err != nil {
			logger.Warn("sync: index fragment failed", slog.String("ref", ff.Ref), slog.String("error", err.Error()))
		}
	}

	// Remove stale entries.
	for ref, f := range indexed {
		if _, ok := disk[ref]; ok {
			continue
		}
		if err := db.DeleteFragment(f.ProjectID, f.Seq); err != nil {
			logger.Warn("sync: delete fragment failed", slog.String("ref", ref), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale fragment", slog.String("ref", ref))
		}
	}
	return nil
}

func syncVersions(db *DB, files storage.Provider, logger *slog.Logger) error {
	metas, err := files.List(docstore.VersionsDir, ".md")
	if err != nil {
		return err
	}
	indexed, err := db.allVersions()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		id, name, ok := docstore.ParseVersionPath(m.Path)
		if !ok {
			continue
		}
		disk[m.Path] = struct{}{}
		if _, ok := indexed[m.Path]; ok {
			continue
		}
		v := models.Version{ProjectID: id, Name: name, Ref: m.Path, Checksum: m.Checksum, CapturedAt: m.UpdatedAt}
		if err := db.RecordVersion(v); err != nil {
			logger.Warn("sync: index version failed", slog.String("ref", m.Path), slog.String("error", err.Error()))
		}
	}

	for ref, v := range indexed {
		if _, ok := disk[ref]; ok {
			continue
		}
		if err := db.DeleteVersion(v.ProjectID, v.Name); err != nil {
			logger.Warn("sync: delete version failed", slog.String("ref", ref), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale version", slog.String("ref", ref))
		}
	}
	return nil
}

// touchDocument records checksum for a project, creating the project row when
// the document was written outside the service.
func touchDocument(db *DB, projectID, checksum string, at time.Time) error {
	if err := db.EnsureProject(projectID, at); err != nil {
		return err
	}
	return db.TouchDocument(projectID, checksum, at)
}
