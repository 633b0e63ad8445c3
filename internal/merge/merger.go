// Package merge folds a transcription fragment into every section of a TRD
// through an external merge capability, isolating per-section failures.
package merge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/scribe/internal/trd"
)

// ErrEmptyResponse is returned when the capability answers with no content.
var ErrEmptyResponse = errors.New("merge: empty response")

// Request is the input for merging one section.
type Request struct {
	Section  trd.Section
	Existing string
	Fragment string
}

// Merger is the external section-merge capability.
// Implementations are not assumed idempotent or deterministic.
type Merger interface {
	MergeSection(ctx context.Context, req Request) (string, error)
}

// MergerFunc adapts a plain function to Merger.
type MergerFunc func(ctx context.Context, req Request) (string, error)

// MergeSection calls f.
func (f MergerFunc) MergeSection(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Completer is a chat-style language model call: system and user prompt in, text out.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// PromptMerger implements Merger on top of a Completer by building the
// section merge prompt.
type PromptMerger struct {
	c Completer
}

// NewPromptMerger returns a Merger that prompts c once per section.
func NewPromptMerger(c Completer) *PromptMerger {
	return &PromptMerger{c: c}
}

// MergeSection prompts the model and returns its answer verbatim.
func (m *PromptMerger) MergeSection(ctx context.Context, req Request) (string, error) {
	system, user := BuildPrompt(req)
	out, err := m.c.Complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("merge: %s: %w", req.Section.Key, err)
	}
	return out, nil
}

// BuildPrompt returns the system and user prompts for one section merge.
func BuildPrompt(req Request) (system, user string) {
	name := req.Section.Key
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a technical documentation expert. Your task is to %s.\n\n", req.Section.Instruction)
	sb.WriteString("Given the existing content and new transcription, update the section to include " +
		"relevant new information while preserving existing content that is still valid.\n\n")
	sb.WriteString("CRITICAL RULES:\n")
	rules := []string{
		"NEVER include section headers (like # Overview, ## Requirements, etc.) in your response",
		"Only return the CONTENT of the section, not the header",
		fmt.Sprintf("Only include information relevant to the %s section", name),
		"Merge new information with existing content thoughtfully",
		"Remove contradictory information, preferring the newer transcription",
		"Maintain professional technical writing style",
		"Use markdown formatting appropriately (bullets, bold, etc.) but NO headers",
		"If no relevant information exists in the transcription, return the existing content unchanged",
		"Replace the entire content, don't append to it",
	}
	for i, r := range rules {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
	}

	existing := req.Existing
	if strings.TrimSpace(existing) == "" {
		existing = "(empty)"
	}
	user = fmt.Sprintf("Existing %s content:\n%s\n\nNew transcription to incorporate:\n%s\n\nPlease update the %s section:",
		name, existing, req.Fragment, name)
	return sb.String(), user
}
