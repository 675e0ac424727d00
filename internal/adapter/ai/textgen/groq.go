// Package textgen implements domain.TextGenerator over hosted LLM providers.
// The provider is chosen once at startup from GENAI_PROVIDER.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// groqSystemPrompt frames every chat request sent to Groq.
const groqSystemPrompt = "You are an expert AI recruiter assistant. Provide clear, concise explanations."

// Groq talks to Groq's OpenAI-compatible chat completions API.
type Groq struct {
	cfg config.Config
	hc  *http.Client
}

// NewGroq builds a Groq generator.
func NewGroq(cfg config.Config) *Groq {
	return &Groq{cfg: cfg, hc: &http.Client{Timeout: 60 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate implements domain.TextGenerator.
func (g *Groq) Generate(ctx context.Context, prompt string) (string, error) {
	if g.cfg.GroqAPIKey == "" {
		return "", fmt.Errorf("op=textgen.groq: %w: GROQ_API_KEY missing", domain.ErrGeneration)
	}
	// counting loads a BPE table, so only pay for it when debug logs are on
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		if n, err := tokencount.DefaultCounter.CountChatTokens(groqSystemPrompt, prompt, g.cfg.GroqModel); err == nil {
			slog.Debug("groq prompt size", slog.String("model", g.cfg.GroqModel), slog.Int("prompt_tokens", n))
		}
	}
	b, err := json.Marshal(chatRequest{
		Model: g.cfg.GroqModel,
		Messages: []chatMessage{
			{Role: "system", Content: groqSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: g.cfg.GenAITemperature,
		MaxTokens:   g.cfg.GenAIMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("op=textgen.groq: %w: %w", domain.ErrGeneration, err)
	}
	endpoint := strings.TrimRight(g.cfg.GroqBaseURL, "/") + "/chat/completions"

	var out chatResponse
	var rateLimited bool
	op := func() error {
		start := time.Now()
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+g.cfg.GroqAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := g.hc.Do(r)
		observability.ObserveAIRequest("groq", "chat", start)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			rateLimited = true
			slog.Warn("ai provider rate limited", slog.String("provider", "groq"), slog.String("op", "chat"), slog.String("retry_after", resp.Header.Get("Retry-After")))
			return fmt.Errorf("rate limited: 429")
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			slog.Warn("ai provider 4xx", slog.String("provider", "groq"), slog.String("op", "chat"), slog.Int("status", resp.StatusCode), slog.String("model", g.cfg.GroqModel), slog.String("body", string(snippet)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			slog.Error("ai provider non-2xx", slog.String("provider", "groq"), slog.String("op", "chat"), slog.Int("status", resp.StatusCode))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		rateLimited = false
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode chat: %w", err))
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(newBackoff(g.cfg), ctx)); err != nil {
		slog.Error("Groq chat failed after retries", slog.String("provider", "groq"), slog.Any("error", err))
		switch {
		case rateLimited:
			return "", fmt.Errorf("op=textgen.groq: %w: %w: %w", domain.ErrGeneration, domain.ErrUpstreamRateLimit, err)
		case errors.Is(err, context.DeadlineExceeded):
			return "", fmt.Errorf("op=textgen.groq: %w: %w: %w", domain.ErrGeneration, domain.ErrUpstreamTimeout, err)
		default:
			return "", fmt.Errorf("op=textgen.groq: %w: %w", domain.ErrGeneration, err)
		}
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("op=textgen.groq: %w: empty completion", domain.ErrGeneration)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func newBackoff(cfg config.Config) *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime, expo.InitialInterval, expo.MaxInterval, expo.Multiplier = cfg.GetAIBackoffConfig()
	return expo
}
