package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Cache stores embedding vectors by key. Implementations must be safe for
// concurrent use. A failing Get is treated as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// MemoryCache is a bounded in-process cache with FIFO eviction.
type MemoryCache struct {
	capacity int
	mu       sync.RWMutex
	m        map[string][]float32
	ord      []string
}

// NewMemoryCache returns a cache holding at most capacity entries.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryCache{capacity: capacity, m: make(map[string][]float32, capacity), ord: make([]string, 0, capacity)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; exists {
		c.m[key] = vec
		return nil
	}
	if len(c.ord) >= c.capacity {
		old := c.ord[0]
		c.ord = c.ord[1:]
		delete(c.m, old)
	}
	c.m[key] = vec
	c.ord = append(c.ord, key)
	return nil
}

// Len returns the number of cached vectors.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Cached decorates an Encoder with a vector cache keyed by model and text.
// Only misses reach the base encoder, in a single call.
type Cached struct {
	base    domain.Encoder
	cache   Cache
	backend string
}

// NewCached wraps base with cache. backend labels cache metrics.
func NewCached(base domain.Encoder, cache Cache, backend string) *Cached {
	return &Cached{base: base, cache: cache, backend: backend}
}

// Dimension implements domain.Encoder.
func (c *Cached) Dimension() int { return c.base.Dimension() }

// Model implements domain.Encoder.
func (c *Cached) Model() string { return c.base.Model() }

// Encode implements domain.Encoder.
func (c *Cached) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	res := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		keys[i] = c.keyFor(t)
		v, ok, err := c.cache.Get(ctx, keys[i])
		if err != nil {
			slog.Warn("embed cache get failed", slog.String("backend", c.backend), slog.Any("error", err))
		}
		if ok && len(v) == c.base.Dimension() {
			observability.RecordCacheLookup(c.backend, true)
			res[i] = v
			continue
		}
		observability.RecordCacheLookup(c.backend, false)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missIdx) == 0 {
		return res, nil
	}
	vecs, err := c.base.Encode(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEncoding, len(vecs), len(missTexts))
	}
	for j, idx := range missIdx {
		res[idx] = vecs[j]
		if err := c.cache.Set(ctx, keys[idx], vecs[j]); err != nil {
			slog.Warn("embed cache set failed", slog.String("backend", c.backend), slog.Any("error", err))
		}
	}
	return res, nil
}

func (c *Cached) keyFor(text string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return c.base.Model() + ":" + hex.EncodeToString(h[:])
}
