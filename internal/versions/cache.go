// Package versions keeps an immutable copy of a project document each time
// it is about to be overwritten.
package versions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/storage"
)

// NameLayout is the time layout of snapshot names. Snapshots captured in the
// same second get a "-n" suffix.
const NameLayout = "20060102_150405"

var nameRe = regexp.MustCompile(`^\d{8}_\d{6}(-\d+)?$`)

// Recorder stores snapshot records.
type Recorder interface {
	RecordVersion(v models.Version) error
	ListVersions(projectID string) ([]models.Version, error)
	DeleteVersion(projectID, name string) error
}

// Options configure a Cache.
type Options struct {
	// MaxPerProject caps the snapshots kept per project; 0 keeps all.
	MaxPerProject int
	// Now overrides the clock.
	Now func() time.Time
}

// Cache writes and reads document snapshots.
type Cache struct {
	files  storage.Provider
	rec    Recorder
	logger *slog.Logger
	max    int
	now    func() time.Time

	mu sync.Mutex // serialises name allocation
}

// New creates a Cache.
func New(files storage.Provider, rec Recorder, logger *slog.Logger, opts Options) *Cache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{files: files, rec: rec, logger: logger, max: opts.MaxPerProject, now: opts.Now}
}

// Snapshot stores text verbatim as a new snapshot of projectID.
func (c *Cache) Snapshot(ctx context.Context, projectID, text string) (models.Version, error) {
	if err := ctx.Err(); err != nil {
		return models.Version{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	at := c.now()
	name, err := c.freeName(projectID, at.Format(NameLayout))
	if err != nil {
		return models.Version{}, err
	}

	data := []byte(text)
	ref := docstore.VersionPath(projectID, name)
	if err := c.files.Write(ref, data); err != nil {
		return models.Version{}, fmt.Errorf("versions: write %s: %w", ref, err)
	}

	v := models.Version{
		ProjectID:  projectID,
		Name:       name,
		Ref:        ref,
		Checksum:   storage.Checksum(data),
		CapturedAt: at,
	}
	if err := c.rec.RecordVersion(v); err != nil {
		return v, fmt.Errorf("versions: record %s: %w", ref, err)
	}

	c.prune(projectID)
	return v, nil
}

func (c *Cache) freeName(projectID, base string) (string, error) {
	name := base
	for n := 1; ; n++ {
		exists, err := c.files.Exists(docstore.VersionPath(projectID, name))
		if err != nil {
			return "", fmt.Errorf("versions: %w", err)
		}
		if !exists {
			return name, nil
		}
		name = fmt.Sprintf("%s-%d", base, n)
	}
}

// prune drops the oldest snapshots beyond the retention cap.
func (c *Cache) prune(projectID string) {
	if c.max <= 0 {
		return
	}
	list, err := c.rec.ListVersions(projectID)
	if err != nil {
		c.logger.Warn("versions: prune list failed", slog.String("project_id", projectID), slog.String("error", err.Error()))
		return
	}
	for _, v := range list[min(c.max, len(list)):] {
		if err := c.files.Delete(v.Ref); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("versions: prune failed", slog.String("ref", v.Ref), slog.String("error", err.Error()))
			continue
		}
		if err := c.rec.DeleteVersion(projectID, v.Name); err != nil {
			c.logger.Warn("versions: prune record failed", slog.String("ref", v.Ref), slog.String("error", err.Error()))
			continue
		}
		c.logger.Debug("versions: pruned", slog.String("ref", v.Ref))
	}
}

// List returns the snapshots of a project, newest first.
func (c *Cache) List(ctx context.Context, projectID string) ([]models.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.rec.ListVersions(projectID)
}

// Read returns the text of one snapshot.
func (c *Cache) Read(ctx context.Context, projectID, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !nameRe.MatchString(name) {
		return "", fmt.Errorf("versions: name %q: %w", name, apperr.ErrInvalidInput)
	}
	data, err := c.files.Read(docstore.VersionPath(projectID, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("versions: %s/%s: %w", projectID, name, apperr.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
