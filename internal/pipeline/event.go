package pipeline

import "time"

// EventKind names a pipeline outcome.
type EventKind string

// Pipeline outcomes.
const (
	EventFragmentTranscribed  EventKind = "fragment.transcribed"
	EventTranscriptionDropped EventKind = "transcription.dropped"
	EventDocumentUpdated      EventKind = "document.updated"
	EventMergeFailed          EventKind = "merge.failed"
	EventMergeSkipped         EventKind = "merge.skipped"
)

// Event reports what happened to one queue item.
type Event struct {
	Kind      EventKind `json:"kind"`
	ProjectID string    `json:"project_id"`
	Seq       int       `json:"chunk_id"`
	Ref       string    `json:"ref,omitempty"`
	// Failed lists sections that kept their previous content.
	Failed []string  `json:"failed_sections,omitempty"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// Observer receives every event. It is called from the worker goroutines and
// must not block.
type Observer func(Event)
