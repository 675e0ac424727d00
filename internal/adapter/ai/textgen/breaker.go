package textgen

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// StateClosed lets every call through.
	StateClosed BreakerState = iota
	// StateOpen rejects calls until the cool-down passes.
	StateOpen
	// StateHalfOpen lets a limited number of trial calls through.
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker guards a TextGenerator. After maxFailures consecutive failures it
// fails fast for cooldown, so a recommendation with many results does not
// wait on a dead provider once per candidate.
type Breaker struct {
	name        string
	next        domain.TextGenerator
	maxFailures int
	cooldown    time.Duration
	halfOpenMax int
	now         func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	trials      int
	successes   int
	lastFailure time.Time
}

// NewBreaker wraps next.
func NewBreaker(name string, next domain.TextGenerator, maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &Breaker{
		name:        name,
		next:        next,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		halfOpenMax: 1,
		now:         time.Now,
		state:       StateClosed,
	}
}

// Generate implements domain.TextGenerator.
func (b *Breaker) Generate(ctx context.Context, prompt string) (string, error) {
	if !b.allow() {
		return "", fmt.Errorf("op=textgen.breaker: %w: circuit %s is open", domain.ErrGeneration, b.name)
	}
	out, err := b.next.Generate(ctx, prompt)
	// a canceled caller says nothing about provider health
	if ctx.Err() != nil && err != nil {
		b.release()
		return "", err
	}
	b.record(err)
	return out, err
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cooldown {
		b.setState(StateHalfOpen)
		b.trials, b.successes = 0, 0
	}
	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.trials < b.halfOpenMax {
			b.trials++
			return true
		}
		return false
	default:
		return false
	}
}

func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen && b.trials > 0 {
		b.trials--
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			if b.state != StateOpen {
				slog.Warn("circuit breaker opened", slog.String("name", b.name), slog.Int("failures", b.failures))
			}
			b.setState(StateOpen)
		}
		return
	}
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.halfOpenMax {
			slog.Info("circuit breaker closed after recovery", slog.String("name", b.name))
			b.setState(StateClosed)
			b.failures, b.trials, b.successes = 0, 0, 0
		}
	}
}

func (b *Breaker) setState(s BreakerState) {
	b.state = s
	observability.RecordCircuitBreakerState(b.name, int(s))
}
