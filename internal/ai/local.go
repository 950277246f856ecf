package ai

import (
	"context"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// declineAnswer is returned when no paragraph clears the score threshold.
const declineAnswer = "I can’t answer that from the provided data."

// LocalProvider answers prompts from a plain-text/Markdown knowledge file
// without calling a remote model. Paragraphs are tokenized once at load; each
// prompt is scored against every paragraph with Jaccard similarity
// (|Q ∩ P| / |Q ∪ P|) and the best match above the threshold is returned.
//
// The provider is immutable after construction and safe for concurrent use.
type LocalProvider struct {
	paragraphs []paragraph
	threshold  float64
}

type paragraph struct {
	text   string
	tokens map[string]struct{}
}

var tokenRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// minParagraphRunes filters out headings and fragments.
const minParagraphRunes = 40

// NewLocalProvider loads the knowledge file at path. threshold <= 0 falls
// back to 0.2.
func NewLocalProvider(path string, threshold float64) (*LocalProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ProviderError{Provider: "local", Err: err}
	}
	if threshold <= 0 {
		threshold = 0.2
	}

	var paras []paragraph
	for _, block := range strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n\n") {
		text := strings.TrimSpace(block)
		if utf8.RuneCountInString(text) < minParagraphRunes {
			continue
		}
		paras = append(paras, paragraph{text: text, tokens: tokenize(text)})
	}
	return &LocalProvider{paragraphs: paras, threshold: threshold}, nil
}

// Complete returns the best-matching paragraph, or a fixed decline line when
// nothing scores above the threshold. It never fails once constructed, apart
// from context cancellation.
func (p *LocalProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &ProviderError{Provider: "local", Err: err}
	}

	q := tokenize(prompt)
	if len(q) == 0 {
		return declineAnswer, nil
	}

	type scored struct {
		text  string
		score float64
	}
	best := make([]scored, 0, len(p.paragraphs))
	for _, para := range p.paragraphs {
		if s := jaccard(q, para.tokens); s > 0 {
			best = append(best, scored{text: para.text, score: s})
		}
	}
	if len(best) == 0 {
		return declineAnswer, nil
	}
	// Stable order on ties keeps answers deterministic.
	sort.SliceStable(best, func(i, j int) bool { return best[i].score > best[j].score })
	if best[0].score < p.threshold {
		return declineAnswer, nil
	}
	return best[0].text, nil
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range tokenRE.FindAllString(strings.ToLower(s), -1) {
		out[t] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
