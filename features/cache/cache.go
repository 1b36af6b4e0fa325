// Package cache is a two-tier response cache: Redis when configured and
// reachable, with an in-process fallback so a Redis outage degrades to
// per-instance caching instead of failing requests.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"goa.design/clue/log"
)

const (
	// DataPrefix namespaces cached query results.
	DataPrefix = "udc:data:"
	// AssistantPrefix namespaces cached assistant answers.
	AssistantPrefix = "udc:assistant:"
)

// Cache is safe for concurrent use.
type Cache struct {
	redis *redis.Client
	local *gocache.Cache
}

// New builds a Cache. redisURL may be empty, in which case only the local
// tier is used.
func New(redisURL string) (*Cache, error) {
	c := &Cache{local: gocache.New(5*time.Minute, 10*time.Minute)}
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, err
		}
		c.redis = redis.NewClient(opts)
	}
	return c, nil
}

// Key derives a cache key from a namespace prefix and any JSON-encodable
// descriptor of the request. Map keys marshal sorted, so equal requests hash
// equal.
func Key(prefix string, descriptor any) string {
	raw, err := json.Marshal(descriptor)
	if err != nil {
		raw = []byte(time.Now().String()) // unmatchable key, effectively a miss
	}
	sum := sha256.Sum256(raw)
	return prefix + hex.EncodeToString(sum[:])
}

// Get returns the cached value for key. Redis failures fall through to the
// local tier.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.redis != nil {
		raw, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			return raw, true
		}
		if err != redis.Nil {
			log.Printf(ctx, "cache: redis get failed, using local tier: %v", err)
		}
	}
	if v, ok := c.local.Get(key); ok {
		return v.([]byte), true
	}
	return nil, false
}

// Set stores value under key in both tiers.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c.redis != nil {
		if err := c.redis.Set(ctx, key, value, ttl).Err(); err != nil {
			log.Printf(ctx, "cache: redis set failed: %v", err)
		}
	}
	c.local.Set(key, value, ttl)
}

// InvalidatePrefix drops every entry under prefix in both tiers. Used when a
// webhook signals that a source changed.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if c.redis != nil {
		iter := c.redis.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
				log.Printf(ctx, "cache: redis del %s: %v", iter.Val(), err)
			}
		}
		if err := iter.Err(); err != nil {
			log.Printf(ctx, "cache: redis scan %s*: %v", prefix, err)
		}
	}
	for key := range c.local.Items() {
		if strings.HasPrefix(key, prefix) {
			c.local.Delete(key)
		}
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
