// Package docstore lays out project documents, fragments and audio chunks
// under the data root and reads and writes them through a storage.Provider.
package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/storage"
)

// DocumentFile is a listing entry for a rendered document.
type DocumentFile struct {
	ProjectID string
	Ref       string
	Checksum  string
	UpdatedAt time.Time
}

// FragmentFile is a listing entry for a persisted fragment.
type FragmentFile struct {
	ProjectID string
	Seq       int
	Ref       string
	UpdatedAt time.Time
}

// Store reads and writes project files.
type Store struct {
	files storage.Provider
}

// New creates a Store on top of files.
func New(files storage.Provider) *Store {
	return &Store{files: files}
}

// ReadDocument returns the current document of a project.
// A project without a document yields apperr.ErrNotFound.
func (s *Store) ReadDocument(projectID string) (string, error) {
	data, err := s.files.Read(DocumentPath(projectID))
	if err != nil {
		return "", notFound(err, "docstore: read document %s", projectID)
	}
	return string(data), nil
}

// WriteDocument atomically replaces the document and returns its checksum.
func (s *Store) WriteDocument(projectID, text string) (string, error) {
	data := []byte(text)
	if err := s.files.Write(DocumentPath(projectID), data); err != nil {
		return "", fmt.Errorf("docstore: write document %s: %w", projectID, err)
	}
	return storage.Checksum(data), nil
}

// WriteFragment persists a fragment and returns its ref.
func (s *Store) WriteFragment(projectID string, seq int, f models.Fragment) (string, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("docstore: encode fragment: %w", err)
	}
	ref := FragmentPath(projectID, seq)
	if err := s.files.Write(ref, data); err != nil {
		return "", fmt.Errorf("docstore: write fragment: %w", err)
	}
	return ref, nil
}

// ReadFragment loads the fragment stored at ref.
func (s *Store) ReadFragment(ref string) (models.Fragment, error) {
	var f models.Fragment
	data, err := s.files.Read(ref)
	if err != nil {
		return f, notFound(err, "docstore: read fragment %s", ref)
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("docstore: decode fragment %s: %w", ref, err)
	}
	return f, nil
}

// WriteAudio stores an uploaded audio chunk and returns its ref.
func (s *Store) WriteAudio(projectID string, seq int, ext string, data []byte) (string, error) {
	ref := AudioPath(projectID, seq, ext)
	if err := s.files.Write(ref, data); err != nil {
		return "", fmt.Errorf("docstore: write audio: %w", err)
	}
	return ref, nil
}

// ReadAudio returns the bytes of the audio chunk stored at ref.
func (s *Store) ReadAudio(ref string) ([]byte, error) {
	data, err := s.files.Read(ref)
	if err != nil {
		return nil, notFound(err, "docstore: read audio %s", ref)
	}
	return data, nil
}

// ListFragments returns the persisted fragments of a project sorted by sequence.
func (s *Store) ListFragments(projectID string) ([]FragmentFile, error) {
	return s.fragments(FragmentsDir + "/" + projectID)
}

// AllFragments returns the persisted fragments of every project.
func (s *Store) AllFragments() ([]FragmentFile, error) {
	return s.fragments(FragmentsDir)
}

func (s *Store) fragments(dir string) ([]FragmentFile, error) {
	infos, err := s.files.List(dir, ".json")
	if err != nil {
		return nil, fmt.Errorf("docstore: list fragments: %w", err)
	}
	out := make([]FragmentFile, 0, len(infos))
	for _, fi := range infos {
		id, seq, ok := ParseFragmentPath(fi.Path)
		if !ok {
			continue
		}
		out = append(out, FragmentFile{ProjectID: id, Seq: seq, Ref: fi.Path, UpdatedAt: fi.UpdatedAt})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProjectID != out[j].ProjectID {
			return out[i].ProjectID < out[j].ProjectID
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// Documents lists every rendered document under the data root.
func (s *Store) Documents() ([]DocumentFile, error) {
	infos, err := s.files.List(DocumentsDir, ".md")
	if err != nil {
		return nil, fmt.Errorf("docstore: list documents: %w", err)
	}
	out := make([]DocumentFile, 0, len(infos))
	for _, fi := range infos {
		id, ok := ParseDocumentPath(fi.Path)
		if !ok {
			continue
		}
		out = append(out, DocumentFile{ProjectID: id, Ref: fi.Path, Checksum: fi.Checksum, UpdatedAt: fi.UpdatedAt})
	}
	return out, nil
}

// NextSeq returns the sequence number for the next chunk of a project:
// one more than the highest number used by any audio chunk or fragment, starting at 1.
func (s *Store) NextSeq(projectID string) (int, error) {
	highest := 0
	audio, err := s.files.List(AudioDir+"/"+projectID, "")
	if err != nil {
		return 0, fmt.Errorf("docstore: list audio: %w", err)
	}
	for _, fi := range audio {
		if _, seq, ok := ParseAudioPath(fi.Path); ok && seq > highest {
			highest = seq
		}
	}
	frags, err := s.ListFragments(projectID)
	if err != nil {
		return 0, err
	}
	for _, f := range frags {
		if f.Seq > highest {
			highest = f.Seq
		}
	}
	return highest + 1, nil
}

// SeqInUse reports whether a project already stores an audio chunk or a
// fragment under seq.
func (s *Store) SeqInUse(projectID string, seq int) (bool, error) {
	ok, err := s.files.Exists(FragmentPath(projectID, seq))
	if err != nil {
		return false, fmt.Errorf("docstore: stat fragment: %w", err)
	}
	if ok {
		return true, nil
	}
	audio, err := s.files.List(AudioDir+"/"+projectID, "")
	if err != nil {
		return false, fmt.Errorf("docstore: list audio: %w", err)
	}
	for _, fi := range audio {
		if _, n, ok := ParseAudioPath(fi.Path); ok && n == seq {
			return true, nil
		}
	}
	return false, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(format+": %w", append(args, apperr.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
