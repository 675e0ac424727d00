package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/talent-matcher/internal/config"
)

// NewRedis connects to REDIS_URL. An empty URL disables the shared
// embedding cache and returns a nil client.
func NewRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("op=app.NewRedis: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("op=app.NewRedis: ping: %w", err)
	}
	return rdb, nil
}

// SkillNames returns the skill vocabulary, from SKILLS_FILE when set.
func SkillNames(cfg config.Config) ([]string, error) {
	if cfg.SkillsFile == "" {
		return config.DefaultSkillTaxonomy().Skills(), nil
	}
	t, err := config.LoadSkillTaxonomy(cfg.SkillsFile)
	if err != nil {
		return nil, fmt.Errorf("op=app.SkillNames: %w", err)
	}
	return t.Skills(), nil
}
