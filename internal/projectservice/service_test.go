package projectservice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/testutil"
	"github.com/starford/scribe/internal/trd"
	"github.com/starford/scribe/internal/versions"
)

type queued struct {
	kind string
	id   string
	seq  int
	ref  string
}

type fakeIngestor struct {
	mu    sync.Mutex
	items []queued
}

func (f *fakeIngestor) EnqueueAudio(id string, seq int, ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, queued{"audio", id, seq, ref})
}

func (f *fakeIngestor) EnqueueFragment(id string, seq int, ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, queued{"fragment", id, seq, ref})
}

func newTestService(t *testing.T) (*Service, *fakeIngestor) {
	t.Helper()
	_, files := testutil.TestDataRoot(t)
	db := testutil.TestDB(t)
	ing := &fakeIngestor{}
	vc := versions.New(files, db, testutil.Logger(), versions.Options{})
	return NewService(docstore.New(files), db, vc, ing), ing
}

func TestCreateProject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "  Checkout  ", "payments")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if len(p.ID) != 8 || p.Name != "Checkout" || p.DocumentChecksum == "" {
		t.Errorf("project = %+v", p)
	}

	doc, err := svc.GetDocument(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if !strings.HasPrefix(doc.Content, trd.Title) || strings.Count(doc.Content, trd.Undefined) != 8 {
		t.Errorf("initial document:\n%s", doc.Content)
	}
	if len(doc.Sections) != 8 || doc.Sections["overview"] != "" {
		t.Errorf("sections = %v", doc.Sections)
	}

	if _, err := svc.CreateProject(ctx, " ", ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank name err = %v", err)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	for _, id := range []string{"deadbeef", "../x"} {
		if _, err := svc.GetProject(context.Background(), id); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("GetProject(%q) err = %v", id, err)
		}
	}
}

func TestListAndFindProjects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.ListProjects(ctx)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("ListProjects on empty index = %v, %v", empty, err)
	}

	a, _ := svc.CreateProject(ctx, "Alpha", "")
	b, _ := svc.CreateProject(ctx, "Beta", "")
	// Activity on Alpha moves it to the front.
	if _, err := svc.UploadChunk(ctx, a.ID, 0, "c.webm", []byte("x")); err != nil {
		t.Fatal(err)
	}

	list, _ := svc.ListProjects(ctx)
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Errorf("order = %+v", list)
	}

	found, err := svc.FindProject(ctx, "Beta")
	if err != nil || found.ID != b.ID {
		t.Errorf("FindProject = %+v, %v", found, err)
	}
}

func TestUploadChunk(t *testing.T) {
	svc, ing := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "P", "")

	r1, err := svc.UploadChunk(ctx, p.ID, 0, "recording.WAV", []byte("RIFF"))
	if err != nil {
		t.Fatalf("UploadChunk: %v", err)
	}
	r2, _ := svc.UploadChunk(ctx, p.ID, 0, "", []byte("webm"))
	r5, _ := svc.UploadChunk(ctx, p.ID, 5, "x.webm", []byte("webm"))
	r6, _ := svc.UploadChunk(ctx, p.ID, 0, "x.webm", []byte("webm"))

	if r1.Seq != 1 || r2.Seq != 2 || r5.Seq != 5 || r6.Seq != 6 {
		t.Errorf("seqs = %d %d %d %d", r1.Seq, r2.Seq, r5.Seq, r6.Seq)
	}
	if r1.Ref != "audio/"+p.ID+"/1.wav" || r2.Ref != "audio/"+p.ID+"/2.webm" {
		t.Errorf("refs = %q, %q", r1.Ref, r2.Ref)
	}
	if len(ing.items) != 4 || ing.items[0].kind != "audio" || ing.items[0].ref != r1.Ref {
		t.Errorf("queued = %+v", ing.items)
	}

	got, _ := svc.GetProject(ctx, p.ID)
	if got.ChunkCount != 4 {
		t.Errorf("chunk_count = %d, want 4", got.ChunkCount)
	}

	if _, err := svc.UploadChunk(ctx, p.ID, 0, "a.webm", nil); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty chunk err = %v", err)
	}
	if _, err := svc.UploadChunk(ctx, "nope1234", 0, "a.webm", []byte("x")); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown project err = %v", err)
	}
}

func TestUploadChunk_SeqAlreadyUsed(t *testing.T) {
	svc, ing := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "P", "")

	if _, err := svc.AddTranscript(ctx, p.ID, "typed notes"); err != nil {
		t.Fatalf("AddTranscript: %v", err)
	}
	if _, err := svc.UploadChunk(ctx, p.ID, 1, "a.webm", []byte("webm")); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("upload over fragment err = %v, want conflict", err)
	}

	if _, err := svc.UploadChunk(ctx, p.ID, 2, "a.webm", []byte("webm")); err != nil {
		t.Fatalf("UploadChunk: %v", err)
	}
	if _, err := svc.UploadChunk(ctx, p.ID, 2, "a.wav", []byte("RIFF")); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("upload over audio err = %v, want conflict", err)
	}

	frag, err := svc.store.ReadFragment(docstore.FragmentPath(p.ID, 1))
	if err != nil || frag.Text != "typed notes" {
		t.Errorf("fragment 1 = %+v, %v", frag, err)
	}
	got, _ := svc.GetProject(ctx, p.ID)
	if got.ChunkCount != 1 || len(ing.items) != 2 {
		t.Errorf("chunk_count = %d, queued = %d", got.ChunkCount, len(ing.items))
	}
}

func TestAddTranscriptAndReplay(t *testing.T) {
	svc, ing := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "P", "")

	r, err := svc.AddTranscript(ctx, p.ID, "  The API must be versioned.  ")
	if err != nil {
		t.Fatalf("AddTranscript: %v", err)
	}
	if r.Seq != 1 || r.Ref != docstore.FragmentPath(p.ID, 1) {
		t.Errorf("receipt = %+v", r)
	}

	list, err := svc.ListTranscriptions(ctx, p.ID)
	if err != nil || len(list) != 1 || list[0].Text != "The API must be versioned." {
		t.Errorf("transcriptions = %+v, %v", list, err)
	}
	one, err := svc.GetTranscription(ctx, p.ID, 1)
	if err != nil || one.Ref != r.Ref {
		t.Errorf("GetTranscription = %+v, %v", one, err)
	}

	if _, err := svc.ReplayTranscription(ctx, p.ID, 1); err != nil {
		t.Fatalf("ReplayTranscription: %v", err)
	}
	if len(ing.items) != 2 || ing.items[1].kind != "fragment" || ing.items[1].seq != 1 {
		t.Errorf("queued = %+v", ing.items)
	}

	if _, err := svc.ReplayTranscription(ctx, p.ID, 7); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("replay missing err = %v", err)
	}
	if _, err := svc.AddTranscript(ctx, p.ID, "   "); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank transcript err = %v", err)
	}

	res, err := svc.SearchTranscriptions(ctx, p.ID, "versioned", 10)
	if err != nil || len(res) != 1 {
		t.Errorf("search = %+v, %v", res, err)
	}
	if _, err := svc.SearchTranscriptions(ctx, "", " ", 10); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("blank query err = %v", err)
	}
}

func TestVersions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "P", "")

	list, err := svc.ListVersions(ctx, p.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("ListVersions = %v, %v", list, err)
	}

	v, err := svc.versions.Snapshot(ctx, p.ID, "old text")
	if err != nil {
		t.Fatal(err)
	}
	text, err := svc.ReadVersion(ctx, p.ID, v.Name)
	if err != nil || text != "old text" {
		t.Errorf("ReadVersion = %q, %v", text, err)
	}
}
