package embed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisCache_RoundTripAndTTL(t *testing.T) {
	t.Parallel()
	mr, rdb := newMiniRedis(t)
	c := NewRedisCache(rdb, time.Hour)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := []float32{0.25, -1.5, 3.125}
	require.NoError(t, c.Set(ctx, "k", want))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, time.Hour, mr.TTL("embed:k"))

	mr.FastForward(2 * time.Hour)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_CorruptValue(t *testing.T) {
	t.Parallel()
	mr, rdb := newMiniRedis(t)
	require.NoError(t, mr.Set("embed:bad", "abc"))
	_, ok, err := NewRedisCache(rdb, 0).Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ServerDown(t *testing.T) {
	t.Parallel()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewRedisCache(rdb, time.Minute)
	_, _, err = c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), "k", []float32{1}))
}

func TestCached_WithRedisSharesAcrossInstances(t *testing.T) {
	t.Parallel()
	_, rdb := newMiniRedis(t)
	first := &countingEncoder{dim: 2}
	second := &countingEncoder{dim: 2}

	_, err := NewCached(first, NewRedisCache(rdb, time.Minute), "redis").Encode(context.Background(), []string{"shared text"})
	require.NoError(t, err)
	vecs, err := NewCached(second, NewRedisCache(rdb, time.Minute), "redis").Encode(context.Background(), []string{"shared text"})
	require.NoError(t, err)

	assert.Empty(t, second.seen, "second process reads the vector from redis")
	assert.Equal(t, float32(len("shared text")), vecs[0][0])
}

func TestVectorCodec(t *testing.T) {
	t.Parallel()
	v := []float32{1, 0, -0.5}
	got, err := decodeVector(encodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)
	empty, err := decodeVector(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
