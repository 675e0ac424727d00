// Command server starts the talent-matcher HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/ai/embed"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/ai/textgen"
	httpserver "github.com/fairyhunter13/talent-matcher/internal/adapter/httpserver"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/ratelimit"
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
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, AI and ranking instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("db migrate failed", slog.Any("error", err))
		os.Exit(1)
	}

	rdb, err := app.NewRedis(ctx, cfg)
	if err != nil {
		slog.Error("redis connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	var redisReady app.RedisClient
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		redisReady = rdb
	}

	skills, err := app.SkillNames(cfg)
	if err != nil {
		slog.Error("skill taxonomy load failed", slog.Any("error", err))
		os.Exit(1)
	}

	var enc domain.Encoder
	if rdb != nil {
		enc, err = embed.New(cfg, rdb)
	} else {
		enc, err = embed.New(cfg, nil)
	}
	if err != nil {
		slog.Error("encoder setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	gen, closeGen, err := textgen.New(ctx, cfg)
	if err != nil {
		slog.Error("text generator setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = closeGen() }()
	if rdb != nil && cfg.GenAIRequestsPerMin > 0 {
		key := "textgen:" + cfg.GenAIProvider
		limiter := ratelimit.New(rdb, map[string]ratelimit.Bucket{key: ratelimit.PerMinute(cfg.GenAIRequestsPerMin)})
		gen = textgen.NewThrottled(gen, limiter, key)
	}

	// Profile events are best-effort: without a broker, stored vectors are
	// refreshed only by cmd/reindex.
	var events domain.EventPublisher
	producer, err := redpanda.NewProducer(ctx, cfg.KafkaBrokers, cfg.ProfileTopic)
	if err != nil {
		slog.Warn("redpanda producer unavailable; profile events disabled", slog.Any("error", err))
	} else {
		events = producer
		defer func() {
			if err := producer.Close(); err != nil {
				slog.Error("failed to close producer", slog.Any("error", err))
			}
		}()
	}

	qcli := qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey)
	app.EnsureVectorCollections(ctx, qdrantcli.NewEmbeddingStore(qcli, enc.Dimension()))

	profilesRepo := postgres.NewProfileRepo(pool)
	resultsRepo := postgres.NewMatchResultRepo(pool)
	profiles := usecase.NewProfileService(usecase.NewProfileBuilder(skills), profilesRepo, profilesRepo, events)
	matches := usecase.NewMatchService(enc, profilesRepo, profilesRepo, resultsRepo)
	recommender := usecase.NewRecommendationService(enc, usecase.NewOutreachWriter(gen, cfg.OutreachConcurrency), usecase.RecommendOptions{
		BatchSize:       cfg.EmbeddingsBatchSize,
		Concurrency:     cfg.EmbeddingsConcurrency,
		DefaultMinScore: cfg.RecommendMinScore,
	})

	dbCheck, redisCheck, qdrantCheck := app.BuildReadinessChecks(pool, redisReady, qcli)
	srv := httpserver.NewServer(cfg, profiles, matches, recommender, dbCheck, redisCheck, qdrantCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("encoder", enc.Model()))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
