package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// SearchCache maps (provider, query, maxResults) to a results snapshot.
// Two tiers: L1 in-memory (lost on restart) and optional L2 Redis.
// Keys are exact-match and case-sensitive — no query normalization.
// Expired entries are treated as misses and evicted lazily on the access
// that finds them; there is no background sweeper.
type SearchCache struct {
	enabled    bool
	l1         sync.Map // key → *cacheEntry
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewSearchCache sets up the cache. redisURL can be empty to disable L2;
// an unreachable Redis disables L2 with a warning rather than failing.
func NewSearchCache(enabled bool, redisURL string, ttl time.Duration, maxEntries int) *SearchCache {
	c := &SearchCache{enabled: enabled, ttl: ttl, maxEntries: maxEntries}
	if !enabled {
		return c
	}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
			}
		}
	}

	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", maxEntries))
	return c
}

// Key builds a deterministic cache key from the exact lookup tuple.
func (c *SearchCache) Key(provider, query string, maxResults int) string {
	joined := strings.Join([]string{provider, query, strconv.Itoa(maxResults)}, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("ws:%x", hash[:12])
}

// Get tries L1, then L2. On an L2 hit, L1 is populated.
func (c *SearchCache) Get(ctx context.Context, provider, query string, maxResults int) ([]SearchResult, bool) {
	if !c.enabled {
		return nil, false
	}
	key := c.Key(provider, query, maxResults)

	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			var results []SearchResult
			if json.Unmarshal(entry.data, &results) == nil {
				slog.Debug("cache: L1 hit", slog.String("key", key))
				c.hits.Add(1)
				return results, true
			}
		}
		c.l1.Delete(key) // expired or corrupt
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var results []SearchResult
			if json.Unmarshal(data, &results) == nil {
				slog.Debug("cache: L2 hit", slog.String("key", key))
				c.hits.Add(1)
				c.l1.Store(key, &cacheEntry{
					data:      data,
					expiresAt: time.Now().Add(c.ttl),
				})
				return results, true
			}
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores a results snapshot in both tiers.
func (c *SearchCache) Set(ctx context.Context, provider, query string, maxResults int, results []SearchResult) {
	if !c.enabled {
		return
	}

	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	key := c.Key(provider, query, maxResults)

	c.evictIfNeeded()

	c.l1.Store(key, &cacheEntry{
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// Stats returns the hit/miss counters.
func (c *SearchCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// evictIfNeeded removes entries when L1 reaches maxEntries: expired
// entries first, then oldest by expiry until under the limit.
func (c *SearchCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})
	if count < c.maxEntries {
		return
	}

	// Earlier expiry = older entry, since expiry = createdAt + ttl.
	var oldest struct {
		key any
		at  time.Time
	}
	for count >= c.maxEntries {
		oldest.key = nil
		oldest.at = now.Add(c.ttl + time.Hour)
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldest.at) {
				oldest.key = key
				oldest.at = entry.expiresAt
			}
			return true
		})
		if oldest.key == nil {
			break
		}
		c.l1.Delete(oldest.key)
		count--
	}
}
