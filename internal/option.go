package internal

import (
	"github.com/starford/scribe/internal/merge"
	"github.com/starford/scribe/internal/transcribe"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	version string

	transcriber transcribe.Transcriber
	completer   merge.Completer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported in logs and to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithTranscriber replaces the configured speech-to-text backend.
func WithTranscriber(t transcribe.Transcriber) Option {
	return func(a *application) {
		a.transcriber = t
	}
}

// WithCompleter replaces the configured merge LLM.
func WithCompleter(c merge.Completer) Option {
	return func(a *application) {
		a.completer = c
	}
}
