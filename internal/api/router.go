package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scribe/internal/projectservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *projectservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)

	r.Route("/projects/{id}", func(r chi.Router) {
		r.Get("/", h.GetProject)
		r.Get("/document", h.GetDocument)

		r.Get("/transcriptions", h.ListTranscriptions)
		r.Post("/transcriptions", h.AddTranscript)
		r.Get("/transcriptions/{seq}", h.GetTranscription)
		r.Post("/transcriptions/{seq}/replay", h.ReplayTranscription)

		// Audio chunks (multipart/form-data).
		r.Post("/chunks", h.UploadChunk)

		r.Get("/versions", h.ListVersions)
		r.Get("/versions/{name}", h.GetVersion)
	})

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
