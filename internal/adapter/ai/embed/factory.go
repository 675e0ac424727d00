package embed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// New resolves EMBEDDINGS_PROVIDER once at startup. Remote encoders are
// wrapped in a cache: Redis when rdb is non-nil, otherwise in-process.
func New(cfg config.Config, rdb redis.Cmdable) (domain.Encoder, error) {
	if cfg.EmbeddingsDim <= 0 {
		return nil, fmt.Errorf("op=embed.New: dimension must be positive, got %d", cfg.EmbeddingsDim)
	}
	switch strings.ToLower(cfg.EmbeddingsProvider) {
	case "local", "":
		slog.Info("embeddings provider selected", slog.String("provider", "local"), slog.Int("dim", cfg.EmbeddingsDim))
		return NewHashing(cfg.EmbeddingsDim), nil
	case "openai":
		base := NewOpenAI(cfg)
		if rdb != nil {
			slog.Info("embeddings provider selected", slog.String("provider", "openai"), slog.String("model", cfg.EmbeddingsModel), slog.String("cache", "redis"))
			return NewCached(base, NewRedisCache(rdb, cfg.EmbedCacheTTL), "redis"), nil
		}
		if cfg.EmbedCacheSize > 0 {
			slog.Info("embeddings provider selected", slog.String("provider", "openai"), slog.String("model", cfg.EmbeddingsModel), slog.String("cache", "memory"))
			return NewCached(base, NewMemoryCache(cfg.EmbedCacheSize), "memory"), nil
		}
		return base, nil
	default:
		return nil, fmt.Errorf("op=embed.New: unknown provider %q", cfg.EmbeddingsProvider)
	}
}
