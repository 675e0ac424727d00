package embed

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
	"github.com/fairyhunter13/talent-matcher/pkg/textx"
)

// maxInputTokens is the per-input token window of OpenAI embedding models.
const maxInputTokens = 8191

// OpenAI calls an OpenAI-compatible /embeddings endpoint.
type OpenAI struct {
	cfg     config.Config
	hc      *http.Client
	counter *tokencount.Counter
}

// NewOpenAI constructs a remote encoder with a bounded HTTP timeout.
func NewOpenAI(cfg config.Config) *OpenAI {
	timeout := 30 * time.Second
	if cfg.IsDev() {
		timeout = 60 * time.Second
	}
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("Embeddings %s %s", r.Method, r.URL.Host)
		}),
	)
	return &OpenAI{cfg: cfg, hc: &http.Client{Timeout: timeout, Transport: transport}, counter: tokencount.DefaultCounter}
}

// Dimension implements domain.Encoder.
func (o *OpenAI) Dimension() int { return o.cfg.EmbeddingsDim }

// Model implements domain.Encoder.
func (o *OpenAI) Model() string {
	return fmt.Sprintf("openai-%s-%d", o.cfg.EmbeddingsModel, o.cfg.EmbeddingsDim)
}

func (o *OpenAI) backoff() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime, expo.InitialInterval, expo.MaxInterval, expo.Multiplier = o.cfg.GetAIBackoffConfig()
	return expo
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Encode implements domain.Encoder. Blank texts get zero vectors and are not sent.
func (o *OpenAI) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	res := make([][]float32, len(texts))
	var send []string
	var sendIdx []int
	for i, t := range texts {
		if textx.IsBlank(t) {
			res[i] = make([]float32, o.cfg.EmbeddingsDim)
			continue
		}
		cut, truncated, err := o.counter.Truncate(t, o.cfg.EmbeddingsModel, maxInputTokens)
		if err != nil {
			return nil, fmt.Errorf("op=embed.openai: %w: %w", domain.ErrEncoding, err)
		}
		if truncated {
			slog.Debug("embedding input truncated to token window", slog.String("provider", "openai"), slog.Int("index", i))
		}
		send = append(send, cut)
		sendIdx = append(sendIdx, i)
	}
	if len(send) == 0 {
		return res, nil
	}
	if o.cfg.OpenAIAPIKey == "" || o.cfg.EmbeddingsModel == "" {
		slog.Error("OpenAI API key or model missing", slog.String("provider", "openai"), slog.Bool("has_api_key", o.cfg.OpenAIAPIKey != ""), slog.String("model", o.cfg.EmbeddingsModel))
		return nil, fmt.Errorf("op=embed.openai: %w: OPENAI_API_KEY or EMBEDDINGS_MODEL missing", domain.ErrEncoding)
	}

	out, err := o.call(ctx, send)
	if err != nil {
		return nil, err
	}
	if len(out.Data) != len(send) {
		return nil, fmt.Errorf("op=embed.openai: %w: got %d vectors for %d inputs", domain.ErrEncoding, len(out.Data), len(send))
	}
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(send) {
			return nil, fmt.Errorf("op=embed.openai: %w: index %d out of range", domain.ErrEncoding, d.Index)
		}
		if len(d.Embedding) != o.cfg.EmbeddingsDim {
			return nil, fmt.Errorf("op=embed.openai: %w: dimension %d, want %d", domain.ErrEncoding, len(d.Embedding), o.cfg.EmbeddingsDim)
		}
		v := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float32(f)
		}
		res[sendIdx[d.Index]] = v
	}
	return res, nil
}

func (o *OpenAI) call(ctx context.Context, inputs []string) (embeddingsResponse, error) {
	endpoint := strings.TrimRight(o.cfg.OpenAIBaseURL, "/") + "/embeddings"
	body := map[string]any{
		"model": o.cfg.EmbeddingsModel,
		"input": inputs,
	}
	// only the v3 models accept a shortened output dimension
	if strings.HasPrefix(o.cfg.EmbeddingsModel, "text-embedding-3") {
		body["dimensions"] = o.cfg.EmbeddingsDim
	}
	b, err := json.Marshal(body)
	if err != nil {
		return embeddingsResponse{}, fmt.Errorf("op=embed.openai: %w: %w", domain.ErrEncoding, err)
	}

	var out embeddingsResponse
	var rateLimited bool
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+o.cfg.OpenAIAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := o.hc.Do(r)
		observability.ObserveAIRequest("openai", "embed", start)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			rateLimited = true
			slog.Warn("ai provider rate limited", slog.String("provider", "openai"), slog.String("op", "embed"), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("rate limited: 429")
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			slog.Warn("ai provider 4xx", slog.String("provider", "openai"), slog.String("op", "embed"), slog.Int("status", resp.StatusCode), slog.String("model", o.cfg.EmbeddingsModel), slog.String("body", readSnippet(resp.Body, 512)))
			return backoff.Permanent(fmt.Errorf("embed status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			slog.Error("ai provider non-2xx", slog.String("provider", "openai"), slog.String("op", "embed"), slog.Int("status", resp.StatusCode), slog.String("body", readSnippet(resp.Body, 512)))
			return fmt.Errorf("embed status %d", resp.StatusCode)
		}
		rateLimited = false
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode embeddings: %w", err))
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(o.backoff(), ctx)); err != nil {
		slog.Error("OpenAI embeddings failed after retries", slog.String("provider", "openai"), slog.Any("error", err))
		if rateLimited {
			return embeddingsResponse{}, fmt.Errorf("op=embed.openai: %w: %w: %w", domain.ErrEncoding, domain.ErrUpstreamRateLimit, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return embeddingsResponse{}, fmt.Errorf("op=embed.openai: %w: %w: %w", domain.ErrEncoding, domain.ErrUpstreamTimeout, err)
		}
		return embeddingsResponse{}, fmt.Errorf("op=embed.openai: %w: %w", domain.ErrEncoding, err)
	}
	return out, nil
}

// readSnippet reads up to n bytes from r for logging.
func readSnippet(r io.Reader, n int64) string {
	b, _ := io.ReadAll(io.LimitReader(r, n))
	return string(b)
}
