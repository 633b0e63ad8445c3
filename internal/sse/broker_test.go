package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/scribe/internal/pipeline"
)

// drain collects whatever is buffered on ch after a short settle period.
func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func count(msgs []string, substr string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "merge.failed", Data: map[string]string{"project_id": "p1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: 1\n") {
			t.Errorf("missing event id in %q", s)
		}
		if !strings.Contains(s, "event: merge.failed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"project_id":"p1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishDocumentEvent_ListThrottle(t *testing.T) {
	b := NewBroker(500*time.Millisecond, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent("created", "p1")
	b.PublishDocumentEvent("updated", "p2")
	b.PublishDocumentEvent("renamed", "p3")

	msgs := drain(ch)
	if got := count(msgs, "event: document."); got != 2 {
		t.Errorf("document events = %d, want 2", got)
	}
	if got := count(msgs, "event: "+ProjectsUpdated); got != 1 {
		t.Errorf("projects.updated events = %d, want 1 (throttled)", got)
	}
}

func TestObservePipelineEvents(t *testing.T) {
	b := NewBroker(time.Hour, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var observer pipeline.Observer = b.Observe
	observer(pipeline.Event{
		Kind: pipeline.EventTranscriptionDropped, ProjectID: "p1", Seq: 3, Ref: "audio/p1/3.webm",
		Error: `transcribe: status 401: {"error":"invalid api key sk-live-123"}`,
	})
	observer(pipeline.Event{Kind: pipeline.EventDocumentUpdated, ProjectID: "p1", Seq: 4})
	observer(pipeline.Event{Kind: pipeline.EventFragmentTranscribed, ProjectID: "p1", Seq: 5})

	msgs := drain(ch)
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4: %q", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "event: transcription.dropped") || !strings.Contains(msgs[0], `"chunk_id":3`) {
		t.Errorf("first = %q", msgs[0])
	}
	for _, m := range msgs {
		if strings.Contains(m, "sk-live-123") || strings.Contains(m, `"error"`) || strings.Contains(m, "audio/p1") {
			t.Errorf("internal detail reached clients: %q", m)
		}
	}
	if !strings.Contains(msgs[1], "event: document.updated") {
		t.Errorf("second = %q", msgs[1])
	}
	if !strings.Contains(msgs[2], "event: "+ProjectsUpdated) {
		t.Errorf("third = %q", msgs[2])
	}
	if !strings.Contains(msgs[3], "event: fragment.transcribed") {
		t.Errorf("fourth = %q", msgs[3])
	}
}

func TestKeepalive(t *testing.T) {
	b := NewBroker(time.Second, 20*time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	select {
	case msg := <-ch:
		if string(msg) != ": ping\n\n" {
			t.Errorf("keepalive = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no keepalive received")
	}
}

// syncRecorder guards the body so the test can read it while the handler writes.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "document.updated", Data: map[string]string{"project_id": "p1"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if body := w.body(); !strings.Contains(body, "event: document.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Subscriber capacity is 64; the extra publishes must not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Safe no-ops after close.
	b.Publish(Event{Type: "document.updated"})
	b.PublishDocumentEvent("updated", "p1")
	b.Observe(pipeline.Event{Kind: pipeline.EventMergeFailed})
}
