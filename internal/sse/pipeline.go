package sse

import (
	"time"

	"github.com/starford/scribe/internal/pipeline"
)

// pipelineEvent is the client payload of a pipeline event. Error detail stays
// in the server log.
type pipelineEvent struct {
	ProjectID string    `json:"project_id"`
	Seq       int       `json:"chunk_id"`
	Failed    []string  `json:"failed_sections,omitempty"`
	At        time.Time `json:"at"`
}

// Observe forwards a pipeline event to clients. It matches pipeline.Observer
// and never blocks for long: the publish channel is buffered.
func (b *Broker) Observe(e pipeline.Event) {
	ev := Event{Type: string(e.Kind), Data: pipelineEvent{
		ProjectID: e.ProjectID,
		Seq:       e.Seq,
		Failed:    e.Failed,
		At:        e.At,
	}}
	switch e.Kind {
	case pipeline.EventDocumentUpdated, pipeline.EventFragmentTranscribed:
		b.PublishProjectEvent(ev)
	default:
		b.Publish(ev)
	}
}
