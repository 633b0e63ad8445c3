package index

import (
	"time"

	"github.com/starford/scribe/internal/models"
)

// ProjectIndex defines the metadata operations the services depend on.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type ProjectIndex interface {
	CreateProject(p models.Project) error
	EnsureProject(id string, at time.Time) error
	GetProject(id string) (*models.Project, error)
	FindProjectByName(name string) (*models.Project, error)
	ListProjects() ([]models.Project, error)
	BumpChunkCount(id string, at time.Time) error
	TouchDocument(id, checksum string, at time.Time) error
	DocumentChecksums() (map[string]string, error)

	RecordFragment(f models.FragmentInfo) error
	GetFragment(projectID string, seq int) (*models.FragmentInfo, error)
	ListFragments(projectID string) ([]models.FragmentInfo, error)
	DeleteFragment(projectID string, seq int) error
	Search(projectID, query string, limit int) ([]SearchResult, error)

	RecordVersion(v models.Version) error
	ListVersions(projectID string) ([]models.Version, error)
	DeleteVersion(projectID, name string) error

	Close() error
}

// Verify *DB satisfies ProjectIndex at compile time.
var _ ProjectIndex = (*DB)(nil)
