package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/starford/scribe/internal/models"
)

// OpenAIOptions configure the Whisper backend.
type OpenAIOptions struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

func (o *OpenAIOptions) defaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openai.com/v1"
	}
	if o.Model == "" {
		o.Model = "whisper-1"
	}
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Minute
	}
}

// OpenAI speech-to-text via audio/transcriptions with verbose_json output.
type OpenAI struct {
	url    string
	apiKey string
	model  string
	do     func(*http.Request) (*http.Response, error)
}

// NewOpenAI creates a Whisper backend.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	opts.defaults()
	if opts.APIKey == "" {
		return nil, errors.New("transcribe: openai: missing api key")
	}
	hc := &http.Client{Timeout: opts.Timeout}
	return &OpenAI{
		url:    strings.TrimRight(opts.BaseURL, "/") + "/audio/transcriptions",
		apiKey: opts.APIKey,
		model:  opts.Model,
		do:     hc.Do,
	}, nil
}

type whisperResp struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the chunk and decodes the verbose response.
func (o *OpenAI) Transcribe(ctx context.Context, a Audio) (models.Fragment, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{"model": o.model, "response_format": "verbose_json"}
	if a.Language != "" {
		fields["language"] = a.Language
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return models.Fragment{}, err
		}
	}
	name := a.Filename
	if name == "" {
		name = "chunk.webm"
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return models.Fragment{}, err
	}
	if _, err := fw.Write(a.Data); err != nil {
		return models.Fragment{}, err
	}
	if err := mw.Close(); err != nil {
		return models.Fragment{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, &body)
	if err != nil {
		return models.Fragment{}, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.do(req)
	if err != nil {
		return models.Fragment{}, fmt.Errorf("transcribe: openai: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.Fragment{}, fmt.Errorf("transcribe: openai http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var wr whisperResp
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return models.Fragment{}, fmt.Errorf("transcribe: openai: decode: %w", err)
	}
	f := models.Fragment{
		Text:     strings.TrimSpace(wr.Text),
		Language: wr.Language,
		Duration: wr.Duration,
	}
	for _, s := range wr.Segments {
		f.Segments = append(f.Segments, models.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
	}
	return f, nil
}
