package textgen

import (
	"context"
	"fmt"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Limiter grants or denies a call against a shared quota.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error)
}

// Throttled rejects generation calls once the provider quota for key is
// spent, so outreach falls back instead of collecting 429s.
type Throttled struct {
	next    domain.TextGenerator
	limiter Limiter
	key     string
}

// NewThrottled wraps next. A nil limiter returns next unchanged.
func NewThrottled(next domain.TextGenerator, limiter Limiter, key string) domain.TextGenerator {
	if limiter == nil {
		return next
	}
	return &Throttled{next: next, limiter: limiter, key: key}
}

// Generate implements domain.TextGenerator.
func (t *Throttled) Generate(ctx context.Context, prompt string) (string, error) {
	// Limiter errors fail open.
	ok, wait, _ := t.limiter.Allow(ctx, t.key, 1)
	if !ok {
		return "", fmt.Errorf("op=textgen.throttle: %w: %s quota spent, retry in %s", domain.ErrUpstreamRateLimit, t.key, wait.Round(time.Millisecond))
	}
	return t.next.Generate(ctx, prompt)
}
