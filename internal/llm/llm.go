// Package llm adapts hosted language models to the merge.Completer interface.
package llm

import (
	"context"
	"fmt"

	"github.com/starford/scribe/internal/merge"
)

// Providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
)

// Options are shared by every provider.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

func (o *Options) defaults() {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1000
	}
}

// New returns the completer for opts.Provider.
func New(ctx context.Context, opts Options) (merge.Completer, error) {
	opts.defaults()
	var (
		c   merge.Completer
		err error
	)
	switch opts.Provider {
	case ProviderAnthropic:
		c, err = NewAnthropic(opts)
	case ProviderGemini:
		c, err = NewGemini(ctx, opts)
	case ProviderOpenAI:
		c, err = NewOpenAI(opts)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
