// Package models defines the domain types for Scribe.
package models

import "time"

// Project is the bookkeeping record for one TRD and its stream of fragments.
type Project struct {
	ID                 string    `json:"project_id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	ChunkCount         int       `json:"chunk_count"`
	TranscriptionCount int       `json:"transcription_count"`
	DocumentChecksum   string    `json:"document_checksum,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"last_updated"`
}

// Segment is a timed span of a transcription, as returned by the speech-to-text service.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Fragment is one persisted unit of transcribed speech.
// It is immutable once written.
type Fragment struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}

// FragmentInfo is a listing entry for a persisted fragment.
type FragmentInfo struct {
	ProjectID string    `json:"project_id"`
	Seq       int       `json:"chunk_id"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Duration  float64   `json:"duration"`
	Ref       string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Version describes one snapshot of a document taken before an overwrite.
type Version struct {
	ProjectID  string    `json:"project_id"`
	Name       string    `json:"name"`
	Ref        string    `json:"path"`
	Checksum   string    `json:"checksum"`
	CapturedAt time.Time `json:"captured_at"`
}
