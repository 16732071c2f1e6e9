// Package cache implements the acceleration layer in front of the health
// store: namespaced entity entries with per-tier TTLs, hashed query
// memoization, and frequency counters, all backed by Redis.
//
// The layer is never load-bearing. If the backend is unreachable at
// construction, disabled by configuration, or fails at runtime, the cache
// marks itself disconnected and every subsequent call becomes a no-op
// returning the empty value. Callers never branch on availability; the
// store stays the sole correctness guarantee.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"healthd/internal/config"
	"healthd/internal/logging"
)

const (
	connectTimeout = 5 * time.Second
	opTimeout      = 2 * time.Second
)

// Cache wraps the Redis backend with graceful degradation.
type Cache struct {
	client *redis.Client

	mu        sync.RWMutex
	connected bool
}

// New connects to the cache backend described by cfg. A disabled config or
// an unreachable backend yields a permanently degraded cache, never an
// error.
func New(cfg config.RedisConfig) *Cache {
	c := &Cache{}

	if !cfg.Enabled {
		logging.Cache("Cache disabled by configuration; running store-direct")
		return c
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  connectTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		logging.Cache("Cache backend unreachable (%v); running store-direct", err)
		c.client = nil
		return c
	}

	c.connected = true
	logging.Cache("Cache connected to %s (db %d)", cfg.Addr(), cfg.DB)
	return c
}

// newWithClient wires an existing client, for tests against miniredis.
func newWithClient(client *redis.Client) *Cache {
	return &Cache{client: client, connected: true}
}

// Connected reports whether the backend is currently usable.
func (c *Cache) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil
}

// disconnect flips the layer into degraded mode after a backend failure.
func (c *Cache) disconnect(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		logging.Cache("Cache backend failed (%v); degrading to store-direct", err)
		c.connected = false
	}
}

// Close releases the backend connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// Get returns the raw value for key, or ("", false) on miss, expiry, or
// degraded operation.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if !c.Connected() {
		return "", false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.disconnect(err)
		return "", false
	}
	return val, true
}

// Set stores value under key with the given TTL. Returns whether the
// write reached the backend.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if !c.Connected() {
		return false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.disconnect(err)
		return false
	}
	return true
}

// Delete removes the given keys, returning how many existed.
func (c *Cache) Delete(ctx context.Context, keys ...string) int64 {
	if !c.Connected() || len(keys) == 0 {
		return 0
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		c.disconnect(err)
		return 0
	}
	return n
}

// Increment adds amount to the counter at key and returns the new value.
func (c *Cache) Increment(ctx context.Context, key string, amount int64) int64 {
	if !c.Connected() {
		return 0
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	n, err := c.client.IncrBy(ctx, key, amount).Result()
	if err != nil {
		c.disconnect(err)
		return 0
	}
	return n
}

// Expire sets an independent TTL on an existing key.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	if !c.Connected() {
		return false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	ok, err := c.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		c.disconnect(err)
		return false
	}
	return ok
}

// Exists reports whether key is present.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	if !c.Connected() {
		return false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.disconnect(err)
		return false
	}
	return n > 0
}

// BatchGet fetches several keys in one round trip. Missing keys are simply
// absent from the result; semantics match repeated Get calls.
func (c *Cache) BatchGet(ctx context.Context, keys []string) map[string]string {
	if !c.Connected() || len(keys) == 0 {
		return map[string]string{}
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.disconnect(err)
		return map[string]string{}
	}

	result := make(map[string]string, len(keys))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			result[keys[i]] = s
		}
	}
	return result
}

// BatchSet stores several entries with one pipelined round trip, all under
// the same TTL; semantics match repeated Set calls.
func (c *Cache) BatchSet(ctx context.Context, entries map[string]string, ttl time.Duration) bool {
	if !c.Connected() || len(entries) == 0 {
		return false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	pipe := c.client.Pipeline()
	for key, value := range entries {
		pipe.Set(ctx, key, value, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.disconnect(err)
		return false
	}
	return true
}

// DeletePattern removes every key matching the glob pattern via SCAN,
// returning the number deleted. Used for per-user wildcard invalidation.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) int64 {
	if !c.Connected() {
		return 0
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	var deleted int64
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.disconnect(err)
		return 0
	}
	if len(keys) > 0 {
		n, err := c.client.Del(ctx, keys...).Result()
		if err != nil {
			c.disconnect(err)
			return 0
		}
		deleted = n
	}
	if deleted > 0 {
		logging.CacheDebug("Invalidated %d keys matching %q", deleted, pattern)
	}
	return deleted
}
