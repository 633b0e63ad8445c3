package index

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, projectID string)

// Watch starts an fsnotify watcher on the documents directory and records
// out-of-band edits until ctx is cancelled. It calls cb (if non-nil) after
// each document whose checksum changed.
//
// Writes made by the pipeline have already been recorded by the time their
// event arrives, so they do not trigger cb. Rename events trigger a
// reconciliation pass over every document.
func Watch(ctx context.Context, db *DB, files storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	dir := filepath.Join(root, docstore.DocumentsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", dir))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, files, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".md") {
				continue
			}
			id, ok := docstore.ParseDocumentPath(docstore.DocumentsDir + "/" + name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				changed, err := indexDocument(db, files, id)
				if err != nil {
					logger.Warn("watcher: index failed", slog.String("project_id", id), slog.String("error", err.Error()))
					continue
				}
				if !changed {
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("project_id", id), slog.String("op", kind))
				if cb != nil {
					cb(kind, id)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the OLD path only; the new name
				// arrives as a Create if it stays in the directory.
				if forgetDocument(db, id, logger) && cb != nil {
					cb("deleted", id)
				}
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// indexDocument re-reads one document and records its checksum if it changed.
func indexDocument(db *DB, files storage.Provider, projectID string) (bool, error) {
	data, err := files.Read(docstore.DocumentPath(projectID))
	if err != nil {
		return false, err
	}
	cs := storage.Checksum(data)
	checksums, err := db.DocumentChecksums()
	if err != nil {
		return false, err
	}
	if prev, ok := checksums[projectID]; ok && prev == cs {
		return false, nil
	}
	return true, touchDocument(db, projectID, cs, time.Now())
}

// forgetDocument clears the recorded checksum of a removed document.
// It reports whether the index changed.
func forgetDocument(db *DB, projectID string, logger *slog.Logger) bool {
	err := db.TouchDocument(projectID, "", time.Now())
	if errors.Is(err, apperr.ErrNotFound) {
		return false
	}
	if err != nil {
		logger.Warn("watcher: forget failed", slog.String("project_id", projectID), slog.String("error", err.Error()))
		return false
	}
	logger.Debug("watcher: document removed", slog.String("project_id", projectID))
	return true
}

// reconcile compares every recorded checksum with the documents on disk.
func reconcile(db *DB, files storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.DocumentChecksums()
	if err != nil {
		logger.Warn("reconcile: checksums failed", slog.String("error", err.Error()))
		return
	}
	docs, err := docstore.New(files).Documents()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		disk[d.ProjectID] = struct{}{}
		if checksums[d.ProjectID] == d.Checksum {
			continue
		}
		if err := touchDocument(db, d.ProjectID, d.Checksum, time.Now()); err == nil {
			logger.Debug("reconcile: indexed", slog.String("project_id", d.ProjectID))
			if cb != nil {
				cb("created", d.ProjectID)
			}
		}
	}

	for id, cs := range checksums {
		if _, ok := disk[id]; ok || cs == "" {
			continue
		}
		if forgetDocument(db, id, logger) && cb != nil {
			cb("deleted", id)
		}
	}
}
