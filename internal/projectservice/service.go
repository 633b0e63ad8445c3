// Package projectservice coordinates project files, the metadata index and
// the ingestion pipeline behind the HTTP and MCP surfaces.
package projectservice

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/index"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/trd"
	"github.com/starford/scribe/internal/versions"
)

// Ingestor accepts work for the pipeline.
type Ingestor interface {
	EnqueueAudio(projectID string, seq int, ref string)
	EnqueueFragment(projectID string, seq int, ref string)
}

// Document is a project's current TRD.
type Document struct {
	ProjectID string            `json:"project_id"`
	Content   string            `json:"content"`
	Sections  map[string]string `json:"sections"`
	// Empty is true until a fragment has defined at least one section.
	Empty    bool   `json:"empty"`
	Checksum string `json:"checksum,omitempty"`
}

// Receipt acknowledges queued work.
type Receipt struct {
	ProjectID string `json:"project_id"`
	Seq       int    `json:"chunk_id"`
	Ref       string `json:"file_path"`
	Status    string `json:"status"`
}

// Service coordinates storage, index and pipeline operations.
type Service struct {
	store    *docstore.Store
	db       index.ProjectIndex
	versions *versions.Cache
	ingest   Ingestor
	now      func() time.Time

	seqMu sync.Mutex // serialises chunk number allocation
}

// NewService creates a new project service.
func NewService(store *docstore.Store, db index.ProjectIndex, vc *versions.Cache, ingest Ingestor) *Service {
	return &Service{store: store, db: db, versions: vc, ingest: ingest, now: time.Now}
}

// CreateProject registers a project and writes its empty document.
func (s *Service) CreateProject(_ context.Context, name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name is required: %w", apperr.ErrInvalidInput)
	}
	now := s.now()
	p := models.Project{
		ID:          uuid.New().String()[:8],
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cs, err := s.store.WriteDocument(p.ID, trd.EmptyDocument(now))
	if err != nil {
		return nil, err
	}
	p.DocumentChecksum = cs
	if err := s.db.CreateProject(p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject returns one project.
func (s *Service) GetProject(_ context.Context, id string) (*models.Project, error) {
	if !docstore.ValidProjectID(id) {
		return nil, apperr.ErrNotFound
	}
	return s.db.GetProject(id)
}

// FindProject looks a project up by name.
func (s *Service) FindProject(_ context.Context, name string) (*models.Project, error) {
	return s.db.FindProjectByName(strings.TrimSpace(name))
}

// ListProjects returns every project, most recently updated first.
func (s *Service) ListProjects(_ context.Context) ([]models.Project, error) {
	list, err := s.db.ListProjects()
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Project{}
	}
	return list, nil
}

// GetDocument returns the current document of a project. A project whose
// document has not been written yet gets the empty document.
func (s *Service) GetDocument(ctx context.Context, id string) (*Document, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := s.store.ReadDocument(id)
	if errors.Is(err, apperr.ErrNotFound) {
		content, err = trd.EmptyDocument(p.CreatedAt), nil
	}
	if err != nil {
		return nil, err
	}
	o := trd.Parse(content)
	return &Document{
		ProjectID: id,
		Content:   content,
		Sections:  o.Map(),
		Empty:     o.IsEmpty(),
		Checksum:  p.DocumentChecksum,
	}, nil
}

// ListTranscriptions returns the fragments of a project ordered by chunk number.
func (s *Service) ListTranscriptions(ctx context.Context, id string) ([]models.FragmentInfo, error) {
	if _, err := s.GetProject(ctx, id); err != nil {
		return nil, err
	}
	list, err := s.db.ListFragments(id)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.FragmentInfo{}
	}
	return list, nil
}

// GetTranscription returns one fragment.
func (s *Service) GetTranscription(ctx context.Context, id string, seq int) (*models.FragmentInfo, error) {
	if _, err := s.GetProject(ctx, id); err != nil {
		return nil, err
	}
	return s.db.GetFragment(id, seq)
}

// SearchTranscriptions runs a full-text search over fragments. An empty id searches every project.
func (s *Service) SearchTranscriptions(_ context.Context, id, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", apperr.ErrInvalidInput)
	}
	res, err := s.db.Search(id, query, limit)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []index.SearchResult{}
	}
	return res, nil
}

// UploadChunk stores an audio chunk and queues it for transcription.
// seq <= 0 picks the next free chunk number.
func (s *Service) UploadChunk(ctx context.Context, id string, seq int, filename string, data []byte) (*Receipt, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("audio chunk is empty: %w", apperr.ErrInvalidInput)
	}
	if _, err := s.GetProject(ctx, id); err != nil {
		return nil, err
	}

	s.seqMu.Lock()
	seq, err := s.allocate(id, seq)
	if err != nil {
		s.seqMu.Unlock()
		return nil, err
	}
	ref, err := s.store.WriteAudio(id, seq, path.Ext(filename), data)
	s.seqMu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := s.db.BumpChunkCount(id, s.now()); err != nil {
		return nil, err
	}
	s.ingest.EnqueueAudio(id, seq, ref)
	return &Receipt{ProjectID: id, Seq: seq, Ref: ref, Status: "queued"}, nil
}

// AddTranscript persists text as a fragment and queues it for merging,
// bypassing speech-to-text.
func (s *Service) AddTranscript(ctx context.Context, id, text string) (*Receipt, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("transcript text is empty: %w", apperr.ErrInvalidInput)
	}
	if _, err := s.GetProject(ctx, id); err != nil {
		return nil, err
	}

	s.seqMu.Lock()
	seq, err := s.allocate(id, 0)
	if err != nil {
		s.seqMu.Unlock()
		return nil, err
	}
	ref, err := s.store.WriteFragment(id, seq, models.Fragment{Text: text})
	s.seqMu.Unlock()
	if err != nil {
		return nil, err
	}

	err = s.db.RecordFragment(models.FragmentInfo{ProjectID: id, Seq: seq, Text: text, Ref: ref, CreatedAt: s.now()})
	if err != nil {
		return nil, err
	}
	s.ingest.EnqueueFragment(id, seq, ref)
	return &Receipt{ProjectID: id, Seq: seq, Ref: ref, Status: "queued"}, nil
}

// ReplayTranscription queues an already persisted fragment for merging again.
func (s *Service) ReplayTranscription(ctx context.Context, id string, seq int) (*Receipt, error) {
	if _, err := s.GetProject(ctx, id); err != nil {
		return nil, err
	}
	ref := docstore.FragmentPath(id, seq)
	if _, err := s.store.ReadFragment(ref); err != nil {
		return nil, err
	}
	s.ingest.EnqueueFragment(id, seq, ref)
	return &Receipt{ProjectID: id, Seq: seq, Ref: ref, Status: "queued"}, nil
}

// ListVersions returns the document snapshots of a project, newest first.
func (s *Service) ListVersions(ctx context.Context, id string) ([]models.Version, error) {
	if _, err := s.GetProject(ctx, id); err != nil {
		return nil, err
	}
	list, err := s.versions.List(ctx, id)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Version{}
	}
	return list, nil
}

// ReadVersion returns the text of one snapshot.
func (s *Service) ReadVersion(ctx context.Context, id, name string) (string, error) {
	if _, err := s.GetProject(ctx, id); err != nil {
		return "", err
	}
	return s.versions.Read(ctx, id, name)
}

// allocate returns seq, or the next free chunk number when seq <= 0.
// An explicit seq already used by an audio chunk or a fragment is a conflict.
// Callers hold seqMu.
func (s *Service) allocate(id string, seq int) (int, error) {
	if seq > 0 {
		used, err := s.store.SeqInUse(id, seq)
		if err != nil {
			return 0, err
		}
		if used {
			return 0, fmt.Errorf("chunk %d already exists: %w", seq, apperr.ErrConflict)
		}
		return seq, nil
	}
	return s.store.NextSeq(id)
}
