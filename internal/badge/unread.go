// Package badge caches the unread booking counters shown as notification badges.
// The cache is a hint: a miss or a redis failure falls back to the database.
package badge

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
)

// LoadFunc computes the authoritative count for one user.
type LoadFunc func(ctx context.Context, userID string) (int64, error)

// UnreadCache keeps per-user unread counters in redis with a short TTL.
type UnreadCache struct {
	cache *redis.Client
	ttl   time.Duration
	load  LoadFunc
	group singleflight.Group

	loads atomic.Int64
	// generation advances on every Invalidate; a load that overlaps one must
	// not leave its count behind in redis.
	generation atomic.Uint64
}

// NewUnreadCache builds the cache. A nil client disables caching.
func NewUnreadCache(cache *redis.Client, ttl time.Duration, load LoadFunc) *UnreadCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &UnreadCache{cache: cache, ttl: ttl, load: load}
}

func key(userID string) string { return fmt.Sprintf("badge:unread:%s", userID) }

// Get returns the cached count or loads it. Concurrent misses for the same
// user share one database load.
func (c *UnreadCache) Get(ctx context.Context, userID string) (int64, error) {
	if c.cache != nil {
		if v, err := c.cache.Get(ctx, key(userID)).Result(); err == nil {
			if n, pErr := strconv.ParseInt(v, 10, 64); pErr == nil {
				return n, nil
			}
		} else if err != redis.Nil {
			logger.Warn("badge cache read failed", zap.String("user", userID), zap.Error(err))
		}
	}

	v, err, _ := c.group.Do(userID, func() (interface{}, error) {
		c.loads.Add(1)
		gen := c.generation.Load()
		n, err := c.load(ctx, userID)
		if err != nil {
			return int64(0), err
		}
		if c.cache != nil && c.generation.Load() == gen {
			_ = c.cache.Set(ctx, key(userID), n, c.ttl).Err()
			if c.generation.Load() != gen {
				_ = c.cache.Del(ctx, key(userID)).Err()
			}
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Invalidate drops the counters of every user touched by a booking change.
func (c *UnreadCache) Invalidate(ctx context.Context, userIDs ...string) {
	if c == nil || c.cache == nil || len(userIDs) == 0 {
		return
	}
	c.generation.Add(1)
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = key(id)
	}
	if err := c.cache.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("badge cache invalidate failed", zap.Strings("users", userIDs), zap.Error(err))
	}
}

// Loads reports how many times the database loader ran.
func (c *UnreadCache) Loads() int64 { return c.loads.Load() }
