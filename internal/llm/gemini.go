package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini completes prompts with GenerateContent.
type Gemini struct {
	client *genai.Client
	opts   Options
}

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	opts.defaults()
	if opts.APIKey == "" {
		return nil, errors.New("llm: gemini: missing api key")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("llm: gemini client: %w", err)
	}
	return &Gemini{client: client, opts: opts}, nil
}

// Complete sends the user prompt with the system prompt as system instruction.
func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.opts.Temperature)),
		MaxOutputTokens: int32(g.opts.MaxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("llm: gemini: %w", err)
	}
	return resp.Text(), nil
}
