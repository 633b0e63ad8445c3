package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/starford/scribe/internal/models"
)

const geminiPrompt = "Transcribe this audio verbatim. Return only the spoken words as plain text, " +
	"without timestamps, speaker labels or commentary. Return nothing if there is no speech."

// GeminiOptions configure the Gemini backend.
type GeminiOptions struct {
	Model   string
	APIKey  string
	BaseURL string
}

// Gemini transcribes audio by sending it inline to a multimodal Gemini model.
// It returns plain text only; language, duration and segments stay empty
// unless a language hint was given.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("transcribe: gemini: missing api key")
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
		return nil, fmt.Errorf("transcribe: gemini client: %w", err)
	}
	return &Gemini{client: client, model: opts.Model}, nil
}

// Transcribe sends the chunk with a transcription instruction.
func (g *Gemini) Transcribe(ctx context.Context, a Audio) (models.Fragment, error) {
	prompt := geminiPrompt
	if a.Language != "" {
		prompt += " The speech is in language " + a.Language + "."
	}
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(a.Data, a.MIMEType()),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{Temperature: genai.Ptr(float32(0))})
	if err != nil {
		return models.Fragment{}, fmt.Errorf("transcribe: gemini: %w", err)
	}
	return models.Fragment{Text: strings.TrimSpace(resp.Text()), Language: a.Language}, nil
}
