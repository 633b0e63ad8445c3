package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scribe/internal/projectservice"
)

const maxJSONBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *projectservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *projectservice.Service) *Handler {
	return &Handler{svc: svc}
}

func projectID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// seqParam parses the {seq} URL parameter. ok is false for anything but a
// positive integer.
func seqParam(r *http.Request) (int, bool) {
	seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil || seq < 1 {
		return 0, false
	}
	return seq, true
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects, most recently updated first
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		p, err := h.svc.FindProject(r.Context(), name)
		if err != nil {
			writeError(w, err, "find project", slog.String("name", name))
			return
		}
		writeJSON(w, http.StatusOK, ProjectListResponse{Projects: []Project{*p}, Total: 1})
		return
	}
	list, err := h.svc.ListProjects(r.Context())
	if err != nil {
		writeError(w, err, "list projects")
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: list, Total: len(list)})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project with an empty TRD
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	true	"Project to create"
//	@Success		201		{object}	Project
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	p, err := h.svc.CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, err, "create project", slog.String("name", req.Name))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProject handles GET /api/projects/{id}.
//
//	@Summary		Get project metadata
//	@Tags			projects
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{object}	Project
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	p, err := h.svc.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err, "get project", slog.String("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetDocument handles GET /api/projects/{id}/document.
// With ?format=markdown the raw document is returned as text/markdown.
//
//	@Summary		Get the current TRD of a project
//	@Tags			documents
//	@Produce		json
//	@Produce		text/markdown
//	@Param			id		path		string	true	"Project ID"
//	@Param			format	query		string	false	"Response format"	Enums(json, markdown)
//	@Success		200		{object}	Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/document [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, err, "get document", slog.String("project_id", id))
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		if doc.Checksum != "" {
			w.Header().Set("ETag", `"`+doc.Checksum+`"`)
		}
		_, _ = w.Write([]byte(doc.Content))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ListVersions handles GET /api/projects/{id}/versions.
//
//	@Summary		List document snapshots, newest first
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{object}	VersionListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/versions [get]
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	list, err := h.svc.ListVersions(r.Context(), id)
	if err != nil {
		writeError(w, err, "list versions", slog.String("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, VersionListResponse{Versions: list})
}

// GetVersion handles GET /api/projects/{id}/versions/{name}.
//
//	@Summary		Get the text of one document snapshot
//	@Tags			documents
//	@Produce		json
//	@Param			id		path		string	true	"Project ID"
//	@Param			name	path		string	true	"Snapshot name"
//	@Success		200		{object}	VersionDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/versions/{name} [get]
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, name := projectID(r), chi.URLParam(r, "name")
	text, err := h.svc.ReadVersion(r.Context(), id, name)
	if err != nil {
		writeError(w, err, "read version", slog.String("project_id", id), slog.String("name", name))
		return
	}
	writeJSON(w, http.StatusOK, VersionDetail{Name: name, Content: text})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across transcriptions
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	true	"Search query"
//	@Param			project_id	query		string	false	"Restrict to one project"
//	@Param			limit		query		int		false	"Max results"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.SearchTranscriptions(r.Context(), r.URL.Query().Get("project_id"), q, limit)
	if err != nil {
		writeError(w, err, "search", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
