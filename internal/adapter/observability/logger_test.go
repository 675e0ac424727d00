package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talent-matcher/internal/config"
)

func TestSetupLogger_DevAndProd(t *testing.T) {
	t.Parallel()
	require.NotNil(t, SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "svc"}))
	require.NotNil(t, SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "svc"}))
}

func TestNewLogger_Fields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	lg := newLogger(&buf, config.Config{AppEnv: "prod", OTELServiceName: "talent-matcher", EmbeddingsProvider: "local"})
	lg.Debug("hidden")
	lg.Info("ranked", "returned", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ranked", line["msg"])
	assert.Equal(t, "talent-matcher", line["service"])
	assert.Equal(t, "prod", line["env"])
	assert.Equal(t, "local", line["embeddings_provider"])
	assert.EqualValues(t, 3, line["returned"])
}

func TestLogLevel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		env, level string
		want       slog.Level
	}{
		{"dev", "", slog.LevelDebug},
		{"prod", "", slog.LevelInfo},
		{"prod", "warn", slog.LevelWarn},
		{"dev", "ERROR", slog.LevelError},
		{"prod", "loud", slog.LevelInfo},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, logLevel(config.Config{AppEnv: c.env, LogLevel: c.level}), "env=%s level=%s", c.env, c.level)
	}
}
