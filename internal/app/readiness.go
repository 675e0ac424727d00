// Package app wires application components and startup helpers.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
)

// Pinger is the minimal interface for a dependency capable of Ping.
// *pgxpool.Pool and *qdrant.Client both satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisClient is the minimal interface for a Redis client needed for readiness.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// BuildReadinessChecks returns the db, redis and qdrant readiness checks.
// A nil redis client means the shared embedding cache is disabled, so its
// check is nil and omitted from /readyz.
func BuildReadinessChecks(pool Pinger, rdb RedisClient, vectors Pinger) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	var redisCheck func(ctx context.Context) error
	if rdb != nil {
		redisCheck = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	qdrantCheck := func(ctx context.Context) error {
		if vectors == nil {
			return fmt.Errorf("qdrant not configured")
		}
		return vectors.Ping(ctx)
	}
	return dbCheck, redisCheck, qdrantCheck
}

// CollectionEnsurer creates the vector collections the refresher writes to.
type CollectionEnsurer interface {
	EnsureCollections(ctx context.Context) error
}

// EnsureVectorCollections creates the embedding collections at startup.
// Failure is logged, not fatal: matching and ranking never read them.
func EnsureVectorCollections(ctx context.Context, store CollectionEnsurer) {
	if store == nil {
		return
	}
	if err := store.EnsureCollections(ctx); err != nil {
		observability.LoggerFromContext(ctx).Warn("qdrant ensure collections failed", slog.Any("error", err))
	}
}
