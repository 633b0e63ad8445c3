// Package pipeline runs the two-stage ingestion flow: audio chunks are
// transcribed into fragments, and fragments are merged into the project
// document, each stage fed by its own FIFO queue and drained by one worker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/merge"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/transcribe"
	"github.com/starford/scribe/internal/trd"
)

// DefaultPollInterval is how long an idle worker waits before re-checking its queue.
const DefaultPollInterval = time.Second

// Item is one unit of queued work. Ref is a data-root relative path to an
// audio chunk (transcription queue) or a fragment (merge queue).
type Item struct {
	ProjectID string
	Seq       int
	Ref       string

	stop bool
}

// Documents is the file access the workers need.
type Documents interface {
	ReadAudio(ref string) ([]byte, error)
	WriteFragment(projectID string, seq int, f models.Fragment) (string, error)
	ReadFragment(ref string) (models.Fragment, error)
	ReadDocument(projectID string) (string, error)
	WriteDocument(projectID, text string) (string, error)
}

// Snapshotter keeps a copy of a document before it is replaced.
type Snapshotter interface {
	Snapshot(ctx context.Context, projectID, text string) (models.Version, error)
}

// Merger folds a fragment into every section of a document.
type Merger interface {
	Merge(ctx context.Context, o trd.Ontology, fragment string) (trd.Ontology, merge.Report)
}

// Recorder receives metadata updates.
type Recorder interface {
	RecordFragment(f models.FragmentInfo) error
	TouchDocument(id, checksum string, at time.Time) error
}

// Deps are the collaborators of a Pipeline. Snapshots and Index are optional.
type Deps struct {
	Documents   Documents
	Transcriber transcribe.Transcriber
	Merger      Merger
	Snapshots   Snapshotter
	Index       Recorder
}

// Pipeline owns the transcription and merge queues and their workers.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger

	observer          Observer
	poll              time.Duration
	transcribeTimeout time.Duration
	language          string
	now               func() time.Time

	transcriptions *Queue[Item]
	merges         *Queue[Item]

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// New creates a stopped pipeline.
func New(deps Deps, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		deps:           deps,
		logger:         logger,
		poll:           DefaultPollInterval,
		now:            time.Now,
		transcriptions: NewQueue[Item](),
		merges:         NewQueue[Item](),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches both workers. They run until Stop or until ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	p.wg.Add(2)
	go p.run(ctx, "transcription", p.transcriptions, p.transcribeItem, func() {
		// Merge items pushed before the sentinel still get merged.
		p.merges.Push(Item{stop: true})
	})
	go p.run(ctx, "merge", p.merges, p.mergeItem, nil)
	p.logger.Info("pipeline: started", slog.Duration("poll_interval", p.poll))
}

// Stop drains both queues and waits for the workers to exit.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	p.transcriptions.Push(Item{stop: true})
	p.wg.Wait()
	p.logger.Info("pipeline: stopped")
}

// EnqueueAudio schedules an uploaded chunk for transcription.
func (p *Pipeline) EnqueueAudio(projectID string, seq int, ref string) {
	p.transcriptions.Push(Item{ProjectID: projectID, Seq: seq, Ref: ref})
}

// EnqueueFragment schedules a persisted fragment for merging. It is the entry
// point for text ingestion and for replaying older fragments.
func (p *Pipeline) EnqueueFragment(projectID string, seq int, ref string) {
	p.merges.Push(Item{ProjectID: projectID, Seq: seq, Ref: ref})
}

// Pending returns the number of items waiting in each queue.
func (p *Pipeline) Pending() (transcriptions, merges int) {
	return p.transcriptions.Len(), p.merges.Len()
}

func (p *Pipeline) run(ctx context.Context, name string, q *Queue[Item], handle func(context.Context, Item), onStop func()) {
	defer p.wg.Done()
	for {
		item, ok := q.Pop(ctx, p.poll)
		if ctx.Err() != nil {
			p.logger.Debug("pipeline: worker cancelled", slog.String("worker", name))
			return
		}
		if !ok {
			continue
		}
		if item.stop {
			if onStop != nil {
				onStop()
			}
			return
		}
		if item.ProjectID == "" || !docstore.ValidProjectID(item.ProjectID) || item.Ref == "" {
			p.logger.Warn("pipeline: malformed item skipped",
				slog.String("worker", name),
				slog.String("project_id", item.ProjectID),
				slog.String("ref", item.Ref))
			continue
		}
		p.safely(ctx, name, item, handle)
	}
}

func (p *Pipeline) safely(ctx context.Context, name string, item Item, handle func(context.Context, Item)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline: worker panic",
				slog.String("worker", name),
				slog.String("project_id", item.ProjectID),
				slog.Int("seq", item.Seq),
				slog.Any("panic", r))
		}
	}()
	handle(ctx, item)
}

func (p *Pipeline) transcribeItem(ctx context.Context, item Item) {
	data, err := p.deps.Documents.ReadAudio(item.Ref)
	if err != nil {
		p.emit(Event{Kind: EventTranscriptionDropped, ProjectID: item.ProjectID, Seq: item.Seq, Ref: item.Ref}, err)
		return
	}

	tctx := ctx
	if p.transcribeTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, p.transcribeTimeout)
		defer cancel()
	}
	frag, err := p.deps.Transcriber.Transcribe(tctx, transcribe.Audio{
		Data:     data,
		Filename: path.Base(item.Ref),
		Language: p.language,
	})
	if err != nil {
		p.emit(Event{Kind: EventTranscriptionDropped, ProjectID: item.ProjectID, Seq: item.Seq, Ref: item.Ref}, err)
		return
	}

	ref, err := p.deps.Documents.WriteFragment(item.ProjectID, item.Seq, frag)
	if err != nil {
		p.emit(Event{Kind: EventTranscriptionDropped, ProjectID: item.ProjectID, Seq: item.Seq, Ref: item.Ref}, err)
		return
	}

	if p.deps.Index != nil {
		err := p.deps.Index.RecordFragment(models.FragmentInfo{
			ProjectID: item.ProjectID,
			Seq:       item.Seq,
			Text:      frag.Text,
			Language:  frag.Language,
			Duration:  frag.Duration,
			Ref:       ref,
			CreatedAt: p.now(),
		})
		if err != nil {
			p.logger.Warn("pipeline: record fragment failed", slog.String("ref", ref), slog.String("error", err.Error()))
		}
	}

	p.emit(Event{Kind: EventFragmentTranscribed, ProjectID: item.ProjectID, Seq: item.Seq, Ref: ref}, nil)
	p.merges.Push(Item{ProjectID: item.ProjectID, Seq: item.Seq, Ref: ref})
}

func (p *Pipeline) mergeItem(ctx context.Context, item Item) {
	ev := Event{ProjectID: item.ProjectID, Seq: item.Seq, Ref: item.Ref}

	frag, err := p.deps.Documents.ReadFragment(item.Ref)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		ev.Kind = EventMergeSkipped
		p.emit(ev, err)
		return
	case err != nil:
		ev.Kind = EventMergeFailed
		p.emit(ev, fmt.Errorf("read fragment: %w", err))
		return
	}
	if strings.TrimSpace(frag.Text) == "" {
		ev.Kind = EventMergeSkipped
		p.emit(ev, nil)
		return
	}

	o := trd.Empty()
	current, err := p.deps.Documents.ReadDocument(item.ProjectID)
	switch {
	case err == nil:
		o = trd.Parse(current)
		if p.deps.Snapshots != nil {
			if _, serr := p.deps.Snapshots.Snapshot(ctx, item.ProjectID, current); serr != nil {
				p.logger.Warn("pipeline: snapshot failed",
					slog.String("project_id", item.ProjectID),
					slog.String("error", serr.Error()))
			}
		}
	case errors.Is(err, apperr.ErrNotFound):
		// First fragment of the project: start from the empty document.
	default:
		ev.Kind = EventMergeFailed
		p.emit(ev, err)
		return
	}

	merged, rep := p.deps.Merger.Merge(ctx, o, frag.Text)
	ev.Failed = rep.Failed

	at := p.now()
	checksum, err := p.deps.Documents.WriteDocument(item.ProjectID, trd.Render(merged, at))
	if err != nil {
		ev.Kind = EventMergeFailed
		p.emit(ev, fmt.Errorf("write document: %w", err))
		return
	}

	if p.deps.Index != nil {
		if err := p.deps.Index.TouchDocument(item.ProjectID, checksum, at); err != nil {
			p.logger.Warn("pipeline: touch document failed",
				slog.String("project_id", item.ProjectID),
				slog.String("error", err.Error()))
		}
	}

	ev.Kind = EventDocumentUpdated
	p.emit(ev, nil)
}

func (p *Pipeline) emit(ev Event, err error) {
	ev.At = p.now()
	attrs := []any{
		slog.String("event", string(ev.Kind)),
		slog.String("project_id", ev.ProjectID),
		slog.Int("seq", ev.Seq),
		slog.String("ref", ev.Ref),
	}
	if len(ev.Failed) > 0 {
		attrs = append(attrs, slog.Any("failed_sections", ev.Failed))
	}
	if err != nil {
		ev.Error = err.Error()
		attrs = append(attrs, slog.String("error", ev.Error))
	}

	switch ev.Kind {
	case EventTranscriptionDropped, EventMergeFailed:
		p.logger.Warn("pipeline: "+string(ev.Kind), attrs...)
	default:
		p.logger.Info("pipeline: "+string(ev.Kind), attrs...)
	}

	if p.observer != nil {
		p.observer(ev)
	}
}
