package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

const maxChunkBytes = 50 << 20 // 50 MB

// ListTranscriptions handles GET /api/projects/{id}/transcriptions.
//
//	@Summary		List transcriptions ordered by chunk number
//	@Tags			transcriptions
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{object}	TranscriptionListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/transcriptions [get]
func (h *Handler) ListTranscriptions(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	list, err := h.svc.ListTranscriptions(r.Context(), id)
	if err != nil {
		writeError(w, err, "list transcriptions", slog.String("project_id", id))
		return
	}
	writeJSON(w, http.StatusOK, TranscriptionListResponse{Transcriptions: list, Total: len(list)})
}

// GetTranscription handles GET /api/projects/{id}/transcriptions/{seq}.
//
//	@Summary		Get one transcription
//	@Tags			transcriptions
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Param			seq	path		int		true	"Chunk number"
//	@Success		200	{object}	Transcription
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/transcriptions/{seq} [get]
func (h *Handler) GetTranscription(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	seq, ok := seqParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid chunk number"))
		return
	}
	f, err := h.svc.GetTranscription(r.Context(), id, seq)
	if err != nil {
		writeError(w, err, "get transcription", slog.String("project_id", id), slog.Int("seq", seq))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// AddTranscript handles POST /api/projects/{id}/transcriptions.
//
//	@Summary		Ingest a text fragment without speech-to-text
//	@Tags			transcriptions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Project ID"
//	@Param			body	body		AddTranscriptRequest	true	"Fragment text"
//	@Success		202		{object}	Receipt
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/transcriptions [post]
func (h *Handler) AddTranscript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	id := projectID(r)
	var req AddTranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	rc, err := h.svc.AddTranscript(r.Context(), id, req.Text)
	if err != nil {
		writeError(w, err, "add transcript", slog.String("project_id", id))
		return
	}
	writeJSON(w, http.StatusAccepted, rc)
}

// ReplayTranscription handles POST /api/projects/{id}/transcriptions/{seq}/replay.
//
//	@Summary		Merge a stored transcription into the TRD again
//	@Tags			transcriptions
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Param			seq	path		int		true	"Chunk number"
//	@Success		202	{object}	Receipt
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/transcriptions/{seq}/replay [post]
func (h *Handler) ReplayTranscription(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	seq, ok := seqParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid chunk number"))
		return
	}
	rc, err := h.svc.ReplayTranscription(r.Context(), id, seq)
	if err != nil {
		writeError(w, err, "replay transcription", slog.String("project_id", id), slog.Int("seq", seq))
		return
	}
	writeJSON(w, http.StatusAccepted, rc)
}

// UploadChunk handles POST /api/projects/{id}/chunks
// (multipart/form-data, field "audio_chunk", optional "chunk_number").
//
//	@Summary		Upload an audio chunk for transcription
//	@Tags			transcriptions
//	@Accept			mpfd
//	@Produce		json
//	@Param			id				path		string	true	"Project ID"
//	@Param			audio_chunk		formData	file	true	"Audio chunk"
//	@Param			chunk_number	formData	int		false	"Chunk number; next free number when omitted"
//	@Success		202				{object}	Receipt
//	@Failure		400				{object}	errResponse
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/chunks [post]
func (h *Handler) UploadChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChunkBytes)
	id := projectID(r)

	if err := r.ParseMultipartForm(maxChunkBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	seq := 0
	if raw := r.FormValue("chunk_number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("chunk_number must be a positive integer"))
			return
		}
		seq = n
	}

	file, header, err := r.FormFile("audio_chunk")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'audio_chunk' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read audio chunk"))
		return
	}

	rc, err := h.svc.UploadChunk(r.Context(), id, seq, header.Filename, data)
	if err != nil {
		writeError(w, err, "upload chunk", slog.String("project_id", id), slog.Int("seq", seq))
		return
	}
	writeJSON(w, http.StatusAccepted, rc)
}
