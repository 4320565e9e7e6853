// Package cache is a small read-through cache over Redis.  Concurrent misses
// for the same key share one load.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	rdb    *redis.Client
	prefix string
	sf     singleflight.Group
}

// New wraps rdb.  A nil client is allowed: every read then goes to the
// loader, still deduplicated.
func New(rdb *redis.Client, prefix string) *Cache {
	return &Cache{rdb: rdb, prefix: prefix}
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// GetOrLoad returns the cached bytes for key or calls load and stores its
// result for ttl.  Load errors are not cached.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	full := c.key(key)
	if c.rdb != nil {
		if b, err := c.rdb.Get(ctx, full).Bytes(); err == nil {
			return b, nil
		}
	}
	v, err, _ := c.sf.Do(full, func() (any, error) {
		b, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if c.rdb != nil {
			_ = c.rdb.Set(ctx, full, b, ttl).Err()
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops keys so the next read reloads them.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c.rdb == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// GetOrLoadJSON is GetOrLoad for JSON-encoded values.  A nil result from
// load is cached as null and comes back as nil.
func GetOrLoadJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (*T, error)) (*T, error) {
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
