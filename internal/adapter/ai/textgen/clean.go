package textgen

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

var (
	boldMarkup = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	preamble   = regexp.MustCompile(`(?i)^(here('s| is)|sure[,!.]|certainly[,!.]|of course[,!.])[^\n]*:\s*$`)
)

// refusalOpeners are lower-cased openings of model refusals.
var refusalOpeners = []string{
	"i cannot", "i can't", "i can not", "i'm unable", "i am unable",
	"i'm sorry, but", "i am sorry, but", "unfortunately, i cannot", "i refuse",
}

// CleanOutput strips chat formatting from generated prose: code fences, a
// leading "Here is ...:" line, bold markers and wrapping quotes.
func CleanOutput(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, ln := range lines {
		if strings.HasPrefix(strings.TrimSpace(ln), "```") {
			continue
		}
		kept = append(kept, ln)
	}
	for len(kept) > 0 && strings.TrimSpace(kept[0]) == "" {
		kept = kept[1:]
	}
	if len(kept) > 0 && preamble.MatchString(strings.TrimSpace(kept[0])) {
		kept = kept[1:]
	}
	out := strings.TrimSpace(strings.Join(kept, "\n"))
	out = boldMarkup.ReplaceAllString(out, "$1")
	if len(out) >= 2 && out[0] == '"' && out[len(out)-1] == '"' {
		out = strings.TrimSpace(out[1 : len(out)-1])
	}
	return out
}

// LooksLikeRefusal reports whether text opens like a model refusal.
func LooksLikeRefusal(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, p := range refusalOpeners {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return strings.Contains(lower, "as an ai language model")
}

// Sanitized cleans provider output and turns empty or refused answers into
// ErrGeneration so callers fall back to their static text.
type Sanitized struct {
	next domain.TextGenerator
}

// NewSanitized wraps next.
func NewSanitized(next domain.TextGenerator) *Sanitized { return &Sanitized{next: next} }

// Generate implements domain.TextGenerator.
func (s *Sanitized) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := s.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = CleanOutput(out)
	switch {
	case out == "":
		return "", fmt.Errorf("op=textgen.sanitize: %w: empty output", domain.ErrGeneration)
	case LooksLikeRefusal(out):
		return "", fmt.Errorf("op=textgen.sanitize: %w: model refused", domain.ErrGeneration)
	}
	return out, nil
}
