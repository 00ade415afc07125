package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"uninest/pkg/logger"
)

// Cache is a thin TTL key/value layer over Redis for read-mostly data.
// Failures degrade to cache misses; the caller always has the store as the
// source of truth.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get unmarshals the cached value into dest and reports whether it was
// found.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Cache get failed for key %s: %v", key, err)
		}
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warn("Cache entry for key %s is malformed, dropping: %v", key, err)
		c.Delete(ctx, key)
		return false
	}

	return true
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Cache set skipped for key %s: %v", key, err)
		return
	}

	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warn("Cache set failed for key %s: %v", key, err)
	}
}

func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		logger.Warn("Cache delete failed for key %s: %v", key, err)
	}
}
