package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/config"
)

// SetupLogger builds the process-wide JSON logger on stdout.
func SetupLogger(cfg config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel(cfg)})
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
		slog.String("embeddings_provider", cfg.EmbeddingsProvider),
	)
}

// logLevel honours LOG_LEVEL when it parses, else debug in dev and info elsewhere.
func logLevel(cfg config.Config) slog.Level {
	var lvl slog.Level
	if s := strings.TrimSpace(cfg.LogLevel); s != "" && lvl.UnmarshalText([]byte(s)) == nil {
		return lvl
	}
	if cfg.IsDev() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
