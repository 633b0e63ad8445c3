package api

import (
	"github.com/starford/scribe/internal/index"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/projectservice"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name        string `json:"name" example:"Billing revamp" validate:"required"`
	Description string `json:"description" example:"Kick-off call with the payments team"`
}

// AddTranscriptRequest is the request body for ingesting text without audio.
type AddTranscriptRequest struct {
	Text string `json:"text" example:"We need to support refunds in EUR." validate:"required"`
}

// Project is a project record (aliased from the domain layer).
type Project = models.Project

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []Project `json:"projects" validate:"required"`
	Total    int       `json:"total" example:"3" validate:"required"`
}

// Document is a project's current TRD (aliased from the domain layer).
type Document = projectservice.Document

// Transcription is a fragment listing entry.
type Transcription = models.FragmentInfo

// TranscriptionListResponse wraps fragment listings.
type TranscriptionListResponse struct {
	Transcriptions []Transcription `json:"transcriptions" validate:"required"`
	Total          int             `json:"total" example:"12" validate:"required"`
}

// Receipt acknowledges queued work.
type Receipt = projectservice.Receipt

// SearchResult is a single fragment search hit.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// Version describes one document snapshot.
type Version = models.Version

// VersionListResponse wraps snapshot listings.
type VersionListResponse struct {
	Versions []Version `json:"versions" validate:"required"`
}

// VersionDetail is the text of one snapshot.
type VersionDetail struct {
	Name    string `json:"name" example:"20260314_101500" validate:"required"`
	Content string `json:"content" validate:"required"`
}
