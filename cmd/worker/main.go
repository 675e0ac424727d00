// Package main provides the worker application entry point.
// The worker consumes profile change events and refreshes the stored
// embedding of each changed candidate or job.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/ai/embed"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/repo/postgres"
	qdrantcli "github.com/fairyhunter13/talent-matcher/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/talent-matcher/internal/app"
	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Expose worker metrics on a dedicated port so Prometheus can scrape
	// event processing and refresh counters.
	observability.InitMetrics()
	metricsSrv := &http.Server{Addr: ":9090", Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	rdb, err := app.NewRedis(ctx, cfg)
	if err != nil {
		slog.Error("redis connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	var enc domain.Encoder
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		enc, err = embed.New(cfg, rdb)
	} else {
		enc, err = embed.New(cfg, nil)
	}
	if err != nil {
		slog.Error("encoder setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	store := qdrantcli.NewEmbeddingStore(qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey), enc.Dimension())
	app.EnsureVectorCollections(ctx, store)

	repo := postgres.NewProfileRepo(pool)
	refresher := usecase.NewEmbeddingRefresher(enc, repo, repo, store, cfg.EmbeddingsConcurrency)

	consumer, err := redpanda.NewConsumer(ctx, redpanda.ConsumerConfig{
		Brokers:        cfg.KafkaBrokers,
		Group:          cfg.ConsumerGroup,
		Topic:          cfg.ProfileTopic,
		MaxConcurrency: cfg.ConsumerMaxConcurrency,
	}, refresher.RefreshOne)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close consumer", slog.Any("error", err))
		}
	}()

	slog.Info("worker started, waiting for profile events", slog.String("topic", cfg.ProfileTopic), slog.String("encoder", enc.Model()))
	if err := consumer.Run(ctx); err != nil {
		slog.Error("worker error", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	slog.Info("worker stopped")
}
