package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Load_DefaultValues(t *testing.T) {
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"localhost:19092"}, cfg.KafkaBrokers)
	assert.Equal(t, "profile-events", cfg.ProfileTopic)
	assert.Equal(t, "", cfg.RedisURL)
	assert.Equal(t, "local", cfg.EmbeddingsProvider)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingsModel)
	assert.Equal(t, 384, cfg.EmbeddingsDim)
	assert.Equal(t, 64, cfg.EmbeddingsBatchSize)
	assert.Equal(t, 2048, cfg.EmbedCacheSize)
	assert.Equal(t, 24*time.Hour, cfg.EmbedCacheTTL)
	assert.Equal(t, "none", cfg.GenAIProvider)
	assert.Equal(t, "gemini-1.5-pro", cfg.GeminiModel)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.GroqModel)
	assert.InDelta(t, 0.3, cfg.GenAITemperature, 1e-6)
	assert.Equal(t, 1000, cfg.GenAIMaxTokens)
	assert.Equal(t, 30, cfg.GenAIRequestsPerMin)
	assert.Equal(t, 50.0, cfg.RecommendMinScore)
	assert.Equal(t, 10, cfg.RecommendDefaultTopK)
	assert.Equal(t, "talent-matcher", cfg.OTELServiceName)
	assert.Equal(t, 15*time.Second, cfg.HTTPReadTimeout)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
}

func TestConfig_Load_CustomValues(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("EMBEDDINGS_PROVIDER", "openai")
	t.Setenv("EMBEDDINGS_DIM", "1536")
	t.Setenv("GENAI_PROVIDER", "groq")
	t.Setenv("RECOMMEND_MIN_SCORE", "65.5")
	t.Setenv("EMBED_CACHE_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "openai", cfg.EmbeddingsProvider)
	assert.Equal(t, 1536, cfg.EmbeddingsDim)
	assert.Equal(t, "groq", cfg.GenAIProvider)
	assert.Equal(t, 65.5, cfg.RecommendMinScore)
	assert.Equal(t, time.Hour, cfg.EmbedCacheTTL)
}

func TestConfig_Load_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"bad duration":        {"HTTP_READ_TIMEOUT": "bad"},
		"unknown embedder":    {"EMBEDDINGS_PROVIDER": "sbert"},
		"unknown generator":   {"GENAI_PROVIDER": "davinci"},
		"zero dimension":      {"EMBEDDINGS_DIM": "0"},
		"min score too large": {"RECOMMEND_MIN_SCORE": "101"},
		"zero top k":          {"RECOMMEND_DEFAULT_TOP_K": "0"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnvVars(t)
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConfig_GetAIBackoffConfig(t *testing.T) {
	cfg := Config{AppEnv: "test", AIBackoffMaxElapsedTime: time.Minute}
	maxElapsed, initial, maxInterval, mult := cfg.GetAIBackoffConfig()
	assert.Equal(t, 2*time.Second, maxElapsed)
	assert.Equal(t, 50*time.Millisecond, initial)
	assert.Equal(t, 500*time.Millisecond, maxInterval)
	assert.Equal(t, 2.0, mult)

	cfg = Config{
		AppEnv:                   "prod",
		AIBackoffMaxElapsedTime:  time.Minute,
		AIBackoffInitialInterval: time.Second,
		AIBackoffMaxInterval:     5 * time.Second,
		AIBackoffMultiplier:      1.5,
	}
	maxElapsed, initial, maxInterval, mult = cfg.GetAIBackoffConfig()
	assert.Equal(t, time.Minute, maxElapsed)
	assert.Equal(t, time.Second, initial)
	assert.Equal(t, 5*time.Second, maxInterval)
	assert.Equal(t, 1.5, mult)
}

func clearEnvVars(t *testing.T) {
	envVars := []string{
		"APP_ENV", "PORT", "DB_URL", "REDIS_URL", "KAFKA_BROKERS",
		"PROFILE_EVENTS_TOPIC", "KAFKA_CONSUMER_GROUP", "QDRANT_URL", "QDRANT_API_KEY",
		"EMBEDDINGS_PROVIDER", "EMBEDDINGS_MODEL", "EMBEDDINGS_DIM",
		"EMBEDDINGS_BATCH_SIZE", "EMBEDDINGS_CONCURRENCY", "EMBED_CACHE_SIZE",
		"EMBED_CACHE_TTL", "OPENAI_API_KEY", "OPENAI_BASE_URL", "GENAI_PROVIDER",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GROQ_API_KEY", "GROQ_BASE_URL",
		"GROQ_MODEL", "GENAI_TEMPERATURE", "GENAI_MAX_TOKENS", "OUTREACH_CONCURRENCY",
		"RECOMMEND_MIN_SCORE", "RECOMMEND_DEFAULT_TOP_K", "SKILLS_FILE",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "CORS_ALLOW_ORIGINS",
		"RATE_LIMIT_PER_MIN", "SERVER_SHUTDOWN_TIMEOUT", "HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT", "MAX_BODY_MB",
	}
	for _, envVar := range envVars {
		t.Setenv(envVar, "")
		require.NoError(t, os.Unsetenv(envVar))
	}
}
