package pipeline

import "time"

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithPollInterval sets how long an idle worker waits before re-checking its queue.
func WithPollInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.poll = d
		}
	}
}

// WithTranscribeTimeout bounds one speech-to-text call.
func WithTranscribeTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.transcribeTimeout = d }
}

// WithLanguage sets the language hint passed to the transcriber.
func WithLanguage(lang string) Option {
	return func(p *Pipeline) { p.language = lang }
}
