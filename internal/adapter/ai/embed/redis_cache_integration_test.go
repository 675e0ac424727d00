//go:build integration

package embed

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisCache_Container(t *testing.T) {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = rdb.Close() })

	enc := NewCached(NewHashing(384), NewRedisCache(rdb, time.Minute), "redis")
	first, err := enc.Encode(ctx, []string{"go engineer with kafka"})
	require.NoError(t, err)
	second, err := enc.Encode(ctx, []string{"go engineer with kafka"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	keys, err := rdb.Keys(ctx, "embed:hashing-v1-384:*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
