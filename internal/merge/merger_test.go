package merge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/scribe/internal/trd"
)

type recordingCompleter struct {
	system, user string
	out          string
	err          error
}

func (c *recordingCompleter) Complete(_ context.Context, system, user string) (string, error) {
	c.system, c.user = system, user
	return c.out, c.err
}

func TestBuildPrompt(t *testing.T) {
	sec := trd.Architecture.Info()
	system, user := BuildPrompt(Request{Section: sec, Existing: "Monolith.", Fragment: "Split into services."})

	for _, want := range []string{
		sec.Instruction,
		"NEVER include section headers",
		"9. Replace the entire content",
		"Only include information relevant to the architecture section",
		"preferring the newer transcription",
	} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	for _, want := range []string{"Existing architecture content:\nMonolith.", "Split into services.", "Please update the architecture section:"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestBuildPrompt_EmptyExisting(t *testing.T) {
	_, user := BuildPrompt(Request{Section: trd.Overview.Info(), Fragment: "hello"})
	if !strings.Contains(user, "Existing overview content:\n(empty)") {
		t.Errorf("user prompt = %q", user)
	}
}

func TestPromptMerger(t *testing.T) {
	c := &recordingCompleter{out: "merged"}
	m := NewPromptMerger(c)

	got, err := m.MergeSection(context.Background(), Request{Section: trd.Constraints.Info(), Fragment: "f"})
	if err != nil || got != "merged" {
		t.Fatalf("got %q, %v", got, err)
	}
	if !strings.Contains(c.system, "constraints") || !strings.Contains(c.user, "f") {
		t.Errorf("prompts not forwarded: %q / %q", c.system, c.user)
	}

	c.err = errors.New("down")
	if _, err := m.MergeSection(context.Background(), Request{Section: trd.Constraints.Info()}); !errors.Is(err, c.err) {
		t.Errorf("err = %v, want wrapped completer error", err)
	}
}
