package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAI completes prompts with any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	url  string
	key  string
	opts Options
	do   func(*http.Request) (*http.Response, error)
}

// NewOpenAI creates a chat completions completer.
func NewOpenAI(opts Options) (*OpenAI, error) {
	opts.defaults()
	if opts.APIKey == "" {
		return nil, errors.New("llm: openai: missing api key")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Model == "" {
		opts.Model = "gpt-4.1-mini"
	}
	hc := &http.Client{Timeout: 2 * time.Minute}
	return &OpenAI{
		url:  strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		key:  opts.APIKey,
		opts: opts,
		do:   hc.Do,
	}, nil
}

type oaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaReq struct {
	Model       string      `json:"model"`
	Messages    []oaMessage `json:"messages"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

type oaResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete posts a system and a user message and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	req := oaReq{Model: o.opts.Model, Temperature: o.opts.Temperature, MaxTokens: o.opts.MaxTokens}
	if system != "" {
		req.Messages = append(req.Messages, oaMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, oaMessage{Role: "user", Content: user})
	body, err := json.Marshal(&req)
	if err != nil {
		return "", err
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+o.key)

	resp, err := o.do(hreq)
	if err != nil {
		return "", fmt.Errorf("llm: openai: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("llm: openai http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var or oaResp
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return "", fmt.Errorf("llm: openai: decode: %w", err)
	}
	if len(or.Choices) == 0 {
		return "", errors.New("llm: openai: no choices")
	}
	return or.Choices[0].Message.Content, nil
}
