// Command reindex re-embeds every stored job and candidate and writes the
// vectors to Qdrant. It prints the run summary as JSON and exits non-zero
// when any record failed.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/ai/embed"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/repo/postgres"
	qdrantcli "github.com/fairyhunter13/talent-matcher/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(observability.SetupLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// reindex is a batch job; skip the shared cache so every vector is recomputed.
	enc, err := embed.New(cfg, nil)
	if err != nil {
		slog.Error("encoder setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	store := qdrantcli.NewEmbeddingStore(qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey), enc.Dimension())
	if err := store.EnsureCollections(ctx); err != nil {
		slog.Error("qdrant ensure collections failed", slog.Any("error", err))
		os.Exit(1)
	}

	repo := postgres.NewProfileRepo(pool)
	stats, err := usecase.NewEmbeddingRefresher(enc, repo, repo, store, cfg.EmbeddingsConcurrency).RefreshAll(ctx)
	if err != nil {
		slog.Error("reindex aborted", slog.Any("error", err))
		os.Exit(1)
	}
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	_ = out.Encode(stats)
	if len(stats.Errors) > 0 {
		os.Exit(2)
	}
}
