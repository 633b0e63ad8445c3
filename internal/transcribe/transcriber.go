// Package transcribe turns audio chunks into text fragments through a
// pluggable speech-to-text backend.
package transcribe

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/starford/scribe/internal/models"
)

// Audio is one chunk handed to a backend.
type Audio struct {
	Data     []byte
	Filename string
	// Language is an optional ISO-639-1 hint.
	Language string
}

// MIMEType guesses the content type from the file extension.
func (a Audio) MIMEType() string {
	ext := strings.ToLower(path.Ext(a.Filename))
	switch ext {
	case ".webm":
		return "audio/webm"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Transcriber is a pluggable speech-to-text backend.
// Implementations may fail or time out; callers do not retry.
type Transcriber interface {
	Transcribe(ctx context.Context, a Audio) (models.Fragment, error)
}

// Options select and configure a backend.
type Options struct {
	Provider string // openai | gemini
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New returns the backend for opts.Provider.
func New(ctx context.Context, opts Options) (Transcriber, error) {
	switch opts.Provider {
	case "openai":
		o, err := NewOpenAI(OpenAIOptions{BaseURL: opts.BaseURL, Model: opts.Model, APIKey: opts.APIKey, Timeout: opts.Timeout})
		if err != nil {
			return nil, err
		}
		return o, nil
	case "gemini":
		g, err := NewGemini(ctx, GeminiOptions{Model: opts.Model, APIKey: opts.APIKey, BaseURL: opts.BaseURL})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("transcribe: unknown provider %q", opts.Provider)
	}
}
