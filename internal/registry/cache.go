package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"verity/pkg/platform/pii"
	"verity/pkg/platform/sentinel"
)

// Cache stores registry results per source and tax ID. Find returns
// sentinel.ErrNotFound on a miss or an expired entry.
type Cache interface {
	Find(ctx context.Context, source Source, taxID string) (*CheckResult, error)
	Save(ctx context.Context, taxID string, result CheckResult) error
}

type cachedResult struct {
	result   CheckResult
	storedAt time.Time
}

// InMemoryCache provides an in-memory cache for registry results with TTL expiration.
type InMemoryCache struct {
	mu       sync.RWMutex
	results  map[string]cachedResult
	cacheTTL time.Duration
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
func NewInMemoryCache(cacheTTL time.Duration) *InMemoryCache {
	return &InMemoryCache{
		results:  make(map[string]cachedResult),
		cacheTTL: cacheTTL,
	}
}

func cacheKey(source Source, taxID string) string {
	return string(source) + ":" + taxID
}

// Save stores a result keyed by source and tax ID.
func (c *InMemoryCache) Save(_ context.Context, taxID string, result CheckResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[cacheKey(result.Source, taxID)] = cachedResult{result: result, storedAt: time.Now()}
	return nil
}

// Find retrieves a cached result.
func (c *InMemoryCache) Find(_ context.Context, source Source, taxID string) (*CheckResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cached, ok := c.results[cacheKey(source, taxID)]; ok {
		if time.Since(cached.storedAt) < c.cacheTTL {
			res := cached.result
			return &res, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// RedisCache keeps registry results in Redis with a TTL. Keys carry a keyed
// hash of the tax ID rather than the tax ID itself.
type RedisCache struct {
	client   *redis.Client
	cacheTTL time.Duration
	hasher   *pii.Hasher
}

// NewRedisCache constructs a Redis-backed registry cache.
func NewRedisCache(client *redis.Client, cacheTTL time.Duration, hasher *pii.Hasher) *RedisCache {
	return &RedisCache{client: client, cacheTTL: cacheTTL, hasher: hasher}
}

func (c *RedisCache) key(source Source, taxID string) string {
	return "verity:registry:" + string(source) + ":" + c.hasher.Hash(taxID)
}

func (c *RedisCache) Save(ctx context.Context, taxID string, result CheckResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode registry result: %w", err)
	}
	if err := c.client.Set(ctx, c.key(result.Source, taxID), payload, c.cacheTTL).Err(); err != nil {
		return fmt.Errorf("save registry result: %w", err)
	}
	return nil
}

func (c *RedisCache) Find(ctx context.Context, source Source, taxID string) (*CheckResult, error) {
	payload, err := c.client.Get(ctx, c.key(source, taxID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registry result: %w", err)
	}
	var res CheckResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode registry result: %w", err)
	}
	return &res, nil
}
