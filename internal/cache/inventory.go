package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	ActivityKeyPrefix  = "activity:%s:v%d"
	ActivityVersionKey = "activity:%s:version"
	FeedVersionKey    = "feed:version"
	FeedPageKeyPrefix = "feed:v%d:%s:%s:%d:%d"
)

const (
	ActivityTTL = time.Minute
	// ActivityVersionTTL outlives any entry written under an older version,
	// so an expired counter restarting at 0 cannot resurrect one.
	ActivityVersionTTL = 24 * time.Hour
	FeedTTL     = 30 * time.Second
)

func ActivityKey(id uuid.UUID, version int64) string {
	return fmt.Sprintf(ActivityKeyPrefix, id, version)
}

// ActivityCacheKey returns the key for id at its current version. A reader
// that fetched before a write stores its copy under the old version, where
// no later reader looks.
func (c *Cache) ActivityCacheKey(ctx context.Context, id uuid.UUID) string {
	if c.Client() == nil {
		return ActivityKey(id, 0)
	}
	v, err := c.client.Get(ctx, fmt.Sprintf(ActivityVersionKey, id)).Int64()
	if err != nil {
		v = 0
	}
	return ActivityKey(id, v)
}

// FeedVersion returns the current feed generation. A missing key or an
// unavailable Redis both read as generation 0.
func (c *Cache) FeedVersion(ctx context.Context) int64 {
	if c.Client() == nil {
		return 0
	}
	v, err := c.client.Get(ctx, FeedVersionKey).Int64()
	if err != nil {
		return 0
	}
	return v
}

// FeedPageKey builds the key for one cached feed page at the current generation.
func (c *Cache) FeedPageKey(ctx context.Context, sort, kind string, limit, offset int) string {
	if kind == "" {
		kind = "all"
	}
	return fmt.Sprintf(FeedPageKeyPrefix, c.FeedVersion(ctx), sort, kind, limit, offset)
}

// BumpFeedVersion invalidates every cached feed page at once. Old pages
// expire on their own TTL.
func (c *Cache) BumpFeedVersion(ctx context.Context) {
	if c.Client() == nil {
		return
	}
	c.client.Incr(ctx, FeedVersionKey)
}

// InvalidateActivity moves id to a new cache version and drops every feed page.
func (c *Cache) InvalidateActivity(ctx context.Context, id uuid.UUID) {
	if c.Client() == nil {
		return
	}
	current := c.ActivityCacheKey(ctx, id)
	versionKey := fmt.Sprintf(ActivityVersionKey, id)
	_, _ = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, ActivityVersionTTL)
		pipe.Del(ctx, current)
		return nil
	})
	c.BumpFeedVersion(ctx)
}
