package textgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Breaker defaults for outreach generation.
const (
	breakerMaxFailures = 3
	breakerCooldown    = 30 * time.Second
)

// New resolves GENAI_PROVIDER once. Providers sit behind a circuit breaker
// and output cleaning. The returned close func releases provider resources
// and is never nil.
func New(ctx context.Context, cfg config.Config) (domain.TextGenerator, func() error, error) {
	noop := func() error { return nil }
	provider := strings.ToLower(cfg.GenAIProvider)
	switch provider {
	case "", "none":
		slog.Info("text generation disabled; outreach uses the static template")
		return Disabled{}, noop, nil
	case "groq":
		slog.Info("text generation provider selected", slog.String("provider", "groq"), slog.String("model", cfg.GroqModel))
		return NewSanitized(NewBreaker("groq", NewGroq(cfg), breakerMaxFailures, breakerCooldown)), noop, nil
	case "gemini":
		g, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("text generation provider selected", slog.String("provider", "gemini"), slog.String("model", cfg.GeminiModel))
		return NewSanitized(NewBreaker("gemini", g, breakerMaxFailures, breakerCooldown)), g.Close, nil
	default:
		return nil, noop, fmt.Errorf("op=textgen.New: unknown provider %q", cfg.GenAIProvider)
	}
}
