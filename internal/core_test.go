package internal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/pipeline"
	"github.com/starford/scribe/internal/testutil"
	"github.com/starford/scribe/internal/transcribe"
)

type fixedTranscriber struct{ text string }

func (f fixedTranscriber) Transcribe(_ context.Context, _ transcribe.Audio) (models.Fragment, error) {
	return models.Fragment{Text: f.text, Language: "en"}, nil
}

type constCompleter struct{ out string }

func (c constCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return c.out, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (l *eventLog) observe(e pipeline.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(kind pipeline.EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func testCore(t *testing.T, observer pipeline.Observer) *core {
	t.Helper()
	dir := t.TempDir()
	cfg := validConfig()
	cfg.Data.Path = filepath.Join(dir, "data")
	cfg.SQLite.Path = filepath.Join(dir, "scribe.db")
	cfg.Pipeline.PollInterval = 10 * time.Millisecond
	cfg.Merger.Backoff = 0

	app, err := newApplication([]Option{
		WithConfig(cfg),
		WithTranscriber(fixedTranscriber{text: "refunds settle in two days"}),
		WithCompleter(constCompleter{out: "merged"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	c, err := newCore(context.Background(), app, testutil.Logger(), observer)
	if err != nil {
		t.Fatalf("newCore: %v", err)
	}
	t.Cleanup(func() { c.close() })
	return c
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	if _, err := newApplication(nil); err == nil {
		t.Error("expected error without config")
	}
	app, err := newApplication([]Option{WithConfig(NewDefaultConfig()), WithVersion("1.2.3")})
	if err != nil || app.version != "1.2.3" {
		t.Errorf("app = %+v, err = %v", app, err)
	}
}

func TestCore_AudioToDocument(t *testing.T) {
	events := &eventLog{}
	c := testCore(t, events.observe)
	ctx := context.Background()

	p, err := c.svc.CreateProject(ctx, "Payments", "")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	stop := c.start(ctx)
	if _, err := c.svc.UploadChunk(ctx, p.ID, 0, "a.wav", []byte("RIFF")); err != nil {
		t.Fatalf("UploadChunk: %v", err)
	}

	testutil.Eventually(t, 5*time.Second, 10*time.Millisecond, func() bool {
		return events.count(pipeline.EventDocumentUpdated) == 1
	}, "document was not updated")
	stop()

	doc, err := c.svc.GetDocument(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	for key, content := range doc.Sections {
		if content != "merged" {
			t.Errorf("section %s = %q", key, content)
		}
	}

	got, err := c.svc.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ChunkCount != 1 || got.TranscriptionCount != 1 {
		t.Errorf("counters = %d/%d", got.ChunkCount, got.TranscriptionCount)
	}

	vs, err := c.svc.ListVersions(ctx, p.ID)
	if err != nil || len(vs) != 1 {
		t.Errorf("versions = %v, %v", vs, err)
	}
}

func TestCore_StopDrainsQueuedWork(t *testing.T) {
	events := &eventLog{}
	c := testCore(t, events.observe)
	ctx := context.Background()

	p, err := c.svc.CreateProject(ctx, "Drain", "")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := c.svc.AddTranscript(ctx, p.ID, "note"); err != nil {
			t.Fatal(err)
		}
	}

	stop := c.start(ctx)
	stop()

	if n := events.count(pipeline.EventDocumentUpdated); n != 3 {
		t.Errorf("documents updated = %d, want 3", n)
	}
	if tr, m := c.pipeline.Pending(); tr != 0 || m != 0 {
		t.Errorf("pending = %d/%d", tr, m)
	}
}
