// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Scribe projects for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/projectservice"
	"github.com/starford/scribe/internal/trd"
)

const formatURI = "scribe://trd-format"

// Server wraps the MCP server with Scribe tools.
type Server struct {
	mcp *server.MCPServer
	svc *projectservice.Service
}

// New creates a new MCP server with all Scribe tools registered.
func New(svc *projectservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Scribe",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List projects, most recently updated first."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("create_project",
		mcp.WithDescription("Create a project with an empty TRD. Returns the project with its id."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("description", mcp.Description("Optional description")),
	), s.createProject)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the current TRD of a project, or a single section of it."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("section", mcp.Description("Optional section key or header (e.g. requirements)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_transcriptions",
		mcp.WithDescription("List the transcription fragments of a project ordered by chunk number."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project ID")),
	), s.listTranscriptions)

	s.mcp.AddTool(mcp.NewTool("search_transcriptions",
		mcp.WithDescription("Full-text search through transcription fragments."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("project_id", mcp.Description("Optional project to restrict the search to")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default: 20)")),
	), s.searchTranscriptions)

	s.mcp.AddTool(mcp.NewTool("add_transcript",
		mcp.WithDescription("Queue text as a new fragment of a project. The TRD is updated "+
			"asynchronously. Read the format first via get_trd_format or the "+formatURI+" resource."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Fragment text")),
	), s.addTranscript)

	s.mcp.AddTool(mcp.NewTool("upload_audio",
		mcp.WithDescription("Queue an audio chunk for transcription and merging. "+
			"Accepts a base64 data URI (data:audio/wav;base64,...) or an http(s) URL."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Data URI or http(s) URL of the audio chunk")),
		mcp.WithString("filename", mcp.Description("Optional filename; its extension picks the audio format")),
		mcp.WithNumber("chunk_number", mcp.Description("Optional chunk number; next free number when omitted")),
	), s.uploadAudio)

	s.mcp.AddTool(mcp.NewTool("get_trd_format",
		mcp.WithDescription("Returns the TRD structure Scribe maintains: sections, order and rules."),
	), s.getTRDFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "TRD Format",
			mcp.WithResourceDescription("Sections and rules of the Technical Requirements Document."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTRDFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool-level error result.
func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.ListProjects(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(list), nil
}

func (s *Server) createProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.CreateProject(ctx, name, req.GetString("description", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(p), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, id)
	if err != nil {
		return toolError(err), nil
	}

	key := req.GetString("section", "")
	if key == "" {
		return mcp.NewToolResultText(doc.Content), nil
	}
	sec, ok := trd.SectionByKey(key)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown section: %s", key)), nil
	}
	content := doc.Sections[sec.Key]
	if content == "" {
		content = trd.Undefined
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) listTranscriptions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.svc.ListTranscriptions(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("no transcriptions yet"), nil
	}
	var b strings.Builder
	for _, f := range list {
		fmt.Fprintf(&b, "[%d] %s\n", f.Seq, f.Text)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) searchTranscriptions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchTranscriptions(ctx, req.GetString("project_id", ""), query, req.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) addTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rc, err := s.svc.AddTranscript(ctx, id, text)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rc), nil
}

func (s *Server) getTRDFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TRDFormatContract), nil
}

func (s *Server) readTRDFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     TRDFormatContract,
		},
	}, nil
}
