package ai

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKnowledge = `# Brand survey notes

Podcasts reach roughly a quarter of younger listeners in metro areas, and
discovery through audio ads keeps growing year over year.

Print circulation continues to decline; most regional papers have moved to a
digital-first subscription model with mixed results.

short heading fragment
`

func writeKnowledge(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledge.md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write knowledge: %v", err)
	}
	return path
}

func TestNewLocalProvider_MissingFile(t *testing.T) {
	_, err := NewLocalProvider(filepath.Join(t.TempDir(), "absent.md"), 0.2)
	if err == nil {
		t.Fatalf("expected error for missing knowledge file")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Provider != "local" {
		t.Fatalf("expected local ProviderError, got %v", err)
	}
}

func TestLocalComplete_BestParagraphWins(t *testing.T) {
	p, err := NewLocalProvider(writeKnowledge(t, testKnowledge), 0.05)
	if err != nil {
		t.Fatalf("NewLocalProvider: %v", err)
	}

	got, err := p.Complete(context.Background(), "how do podcasts affect discovery for younger listeners?")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(got, "Podcasts reach") {
		t.Fatalf("expected the podcast paragraph, got %q", got)
	}
}

func TestLocalComplete_DeclinesBelowThreshold(t *testing.T) {
	p, err := NewLocalProvider(writeKnowledge(t, testKnowledge), 0.9)
	if err != nil {
		t.Fatalf("NewLocalProvider: %v", err)
	}

	got, err := p.Complete(context.Background(), "completely unrelated quantum chromodynamics question")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != declineAnswer {
		t.Fatalf("expected decline line, got %q", got)
	}
}

func TestLocalComplete_EmptyPromptDeclines(t *testing.T) {
	p, err := NewLocalProvider(writeKnowledge(t, testKnowledge), 0.2)
	if err != nil {
		t.Fatalf("NewLocalProvider: %v", err)
	}
	got, err := p.Complete(context.Background(), "???!!!")
	if err != nil || got != declineAnswer {
		t.Fatalf("expected decline for token-free prompt, got %q err=%v", got, err)
	}
}

func TestLocalComplete_CancelledContext(t *testing.T) {
	p, err := NewLocalProvider(writeKnowledge(t, testKnowledge), 0.2)
	if err != nil {
		t.Fatalf("NewLocalProvider: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Complete(ctx, "anything"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestTokenizeAndJaccard(t *testing.T) {
	a := tokenize("The quick brown fox!")
	if _, ok := a["quick"]; !ok {
		t.Fatalf("tokenize missed a word: %v", a)
	}

	b := tokenize("quick fox jumps")
	s := jaccard(a, b)
	// intersection {quick, fox} = 2, union {the, quick, brown, fox, jumps} = 5
	if s < 0.39 || s > 0.41 {
		t.Fatalf("jaccard = %v, want 0.4", s)
	}

	if jaccard(nil, b) != 0 || jaccard(a, nil) != 0 {
		t.Fatalf("empty sets must score 0")
	}
}
