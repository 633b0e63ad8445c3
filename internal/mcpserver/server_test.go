package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/projectservice"
	"github.com/starford/scribe/internal/testutil"
	"github.com/starford/scribe/internal/trd"
	"github.com/starford/scribe/internal/versions"
)

type recordingIngestor struct {
	mu    sync.Mutex
	audio []string
	text  []string
}

func (r *recordingIngestor) EnqueueAudio(_ string, _ int, ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio = append(r.audio, ref)
}

func (r *recordingIngestor) EnqueueFragment(_ string, _ int, ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = append(r.text, ref)
}

func testServer(t *testing.T) (*Server, *projectservice.Service, *recordingIngestor) {
	t.Helper()
	_, files := testutil.TestDataRoot(t)
	db := testutil.TestDB(t)
	ing := &recordingIngestor{}
	vc := versions.New(files, db, testutil.Logger(), versions.Options{})
	svc := projectservice.NewService(docstore.New(files), db, vc, ing)
	return New(svc, "test"), svc, ing
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_projects":         srv.listProjects,
		"create_project":        srv.createProject,
		"read_document":         srv.readDocument,
		"list_transcriptions":   srv.listTranscriptions,
		"search_transcriptions": srv.searchTranscriptions,
		"add_transcript":        srv.addTranscript,
		"upload_audio":          srv.uploadAudio,
		"get_trd_format":        srv.getTRDFormat,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func createProject(t *testing.T, srv *Server, name string) models.Project {
	t.Helper()
	r := callTool(t, srv, "create_project", map[string]any{"name": name})
	if r.IsError {
		t.Fatalf("create_project: %s", resultText(r))
	}
	var p models.Project
	if err := json.Unmarshal([]byte(resultText(r)), &p); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	return p
}

func TestCreateAndListProjects(t *testing.T) {
	srv, _, _ := testServer(t)
	p := createProject(t, srv, "Checkout")

	r := callTool(t, srv, "list_projects", map[string]any{})
	var list []models.Project
	if err := json.Unmarshal([]byte(resultText(r)), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != p.ID {
		t.Errorf("list = %+v", list)
	}

	if r := callTool(t, srv, "create_project", map[string]any{}); !r.IsError {
		t.Error("expected error without name")
	}
}

func TestReadDocument(t *testing.T) {
	srv, _, _ := testServer(t)
	p := createProject(t, srv, "doc")

	r := callTool(t, srv, "read_document", map[string]any{"project_id": p.ID})
	if text := resultText(r); !strings.HasPrefix(text, trd.Title) {
		t.Errorf("document = %q", text)
	}

	r = callTool(t, srv, "read_document", map[string]any{"project_id": p.ID, "section": "Acceptance Criteria"})
	if text := resultText(r); text != trd.Undefined {
		t.Errorf("section = %q", text)
	}

	r = callTool(t, srv, "read_document", map[string]any{"project_id": p.ID, "section": "budget"})
	if !r.IsError {
		t.Error("expected error for unknown section")
	}

	r = callTool(t, srv, "read_document", map[string]any{"project_id": "deadbeef"})
	if !r.IsError || resultText(r) != "not found" {
		t.Errorf("missing project = %v %q", r.IsError, resultText(r))
	}
}

func TestAddTranscriptAndSearch(t *testing.T) {
	srv, _, ing := testServer(t)
	p := createProject(t, srv, "text")

	r := callTool(t, srv, "add_transcript", map[string]any{"project_id": p.ID, "text": "refunds settle in two days"})
	if r.IsError {
		t.Fatalf("add_transcript: %s", resultText(r))
	}
	if len(ing.text) != 1 {
		t.Errorf("queued = %v", ing.text)
	}

	r = callTool(t, srv, "list_transcriptions", map[string]any{"project_id": p.ID})
	if text := resultText(r); text != "[1] refunds settle in two days" {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "search_transcriptions", map[string]any{"query": "refunds"})
	if text := resultText(r); !strings.Contains(text, `"chunk_id": 1`) {
		t.Errorf("search = %q", text)
	}

	r = callTool(t, srv, "add_transcript", map[string]any{"project_id": p.ID, "text": "  "})
	if !r.IsError {
		t.Error("expected error for empty text")
	}
}

func TestListTranscriptionsEmpty(t *testing.T) {
	srv, _, _ := testServer(t)
	p := createProject(t, srv, "empty")
	r := callTool(t, srv, "list_transcriptions", map[string]any{"project_id": p.ID})
	if text := resultText(r); text != "no transcriptions yet" {
		t.Errorf("list = %q", text)
	}
}

func wavBytes() []byte {
	return append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 28)...)
}

func TestUploadAudio_DataURI(t *testing.T) {
	srv, svc, ing := testServer(t)
	p := createProject(t, srv, "audio")

	uri := "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wavBytes())
	r := callTool(t, srv, "upload_audio", map[string]any{"project_id": p.ID, "url": uri, "chunk_number": 3})
	if r.IsError {
		t.Fatalf("upload_audio: %s", resultText(r))
	}
	var rc projectservice.Receipt
	_ = json.Unmarshal([]byte(resultText(r)), &rc)
	if rc.Seq != 3 || rc.Ref != "audio/"+p.ID+"/3.wav" {
		t.Errorf("receipt = %+v", rc)
	}
	if len(ing.audio) != 1 {
		t.Errorf("queued = %v", ing.audio)
	}

	got, err := svc.GetProject(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ChunkCount != 1 {
		t.Errorf("chunk_count = %d", got.ChunkCount)
	}
}

func TestUploadAudio_Rejects(t *testing.T) {
	srv, _, ing := testServer(t)
	p := createProject(t, srv, "audio")

	tests := []struct {
		name string
		args map[string]any
	}{
		{"not base64", map[string]any{"url": "data:audio/wav,plain"}},
		{"unknown mime", map[string]any{"url": "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("x"))}},
		{"magic mismatch", map[string]any{"url": "data:audio/ogg;base64," + base64.StdEncoding.EncodeToString(wavBytes())}},
		{"loopback url", map[string]any{"url": "http://127.0.0.1/chunk.wav"}},
		{"bad scheme", map[string]any{"url": "ftp://example.com/chunk.wav"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["project_id"] = p.ID
			if r := callTool(t, srv, "upload_audio", tt.args); !r.IsError {
				t.Errorf("expected error, got %q", resultText(r))
			}
		})
	}
	if len(ing.audio) != 0 {
		t.Errorf("queued = %v", ing.audio)
	}
}

func TestAudioExt(t *testing.T) {
	tests := []struct {
		filename, url, detected, want string
	}{
		{"a.MP3", "data:", "", ".mp3"},
		{"", "https://x.test/rec/chunk.flac?sig=1", "", ".flac"},
		{"", "https://x.test/download", ".webm", ".webm"},
		{"clip.mp4", "data:", "", ".m4a"},
		{"notes.txt", "https://x.test/a.pdf", "", ""},
	}
	for _, tt := range tests {
		if got := audioExt(tt.filename, tt.url, tt.detected); got != tt.want {
			t.Errorf("audioExt(%q, %q, %q) = %q, want %q", tt.filename, tt.url, tt.detected, got, tt.want)
		}
	}
}

func TestTRDFormatListsEverySection(t *testing.T) {
	srv, _, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_trd_format", map[string]any{}))
	for _, s := range trd.Sections() {
		if !strings.Contains(text, "| `"+s.Key+"` | "+s.Header+" |") {
			t.Errorf("format missing section %s", s.Key)
		}
	}

	res, err := srv.readTRDFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(res) != 1 {
		t.Fatalf("resource = %v, %v", res, err)
	}
	if tc, ok := res[0].(mcp.TextResourceContents); !ok || tc.Text != TRDFormatContract {
		t.Error("resource text differs from tool text")
	}
}
