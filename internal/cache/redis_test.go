package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCache_AsideMissThenHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			*dest = payload{Name: "feed", Count: 3}
			return nil
		}
	}

	var first payload
	hit, err := c.Aside(ctx, "k", &first, time.Minute, fetch(&first))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, first.Count)

	var second payload
	hit, err = c.Aside(ctx, "k", &second, time.Minute, fetch(&second))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCache_AsideReturnsFetchError(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("db down")

	var dest payload
	_, err := c.Aside(context.Background(), "k", &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestCache_NilClientIsNoop(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	found, err := c.GetJSON(ctx, "k", &payload{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.SetJSON(ctx, "k", payload{}, time.Minute))
	assert.Equal(t, int64(0), c.FeedVersion(ctx))
	c.BumpFeedVersion(ctx)
	c.InvalidateActivity(ctx, uuid.New())

	var nilCache *Cache
	assert.Nil(t, nilCache.Client())
}

func TestCache_FeedVersionChangesPageKey(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	before := c.FeedPageKey(ctx, "newest", "", 20, 0)
	assert.Equal(t, "feed:v0:newest:all:20:0", before)

	c.BumpFeedVersion(ctx)
	after := c.FeedPageKey(ctx, "newest", "", 20, 0)
	assert.Equal(t, "feed:v1:newest:all:20:0", after)
}

func TestCache_InvalidateActivity(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	id := uuid.New()

	before := c.ActivityCacheKey(ctx, id)
	assert.Equal(t, ActivityKey(id, 0), before)
	require.NoError(t, c.SetJSON(ctx, before, payload{Name: "a"}, time.Minute))
	c.InvalidateActivity(ctx, id)

	assert.False(t, mr.Exists(before))
	assert.Equal(t, ActivityKey(id, 1), c.ActivityCacheKey(ctx, id))
	assert.Equal(t, int64(1), c.FeedVersion(ctx))
	assert.NotZero(t, mr.TTL("activity:"+id.String()+":version"))
}

func TestCache_LateWriteLandsUnderOldVersion(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	id := uuid.New()

	// A reader resolves its key, then a write commits before it stores.
	stale := c.ActivityCacheKey(ctx, id)
	c.InvalidateActivity(ctx, id)
	require.NoError(t, c.SetJSON(ctx, stale, payload{Name: "stale"}, time.Minute))

	var got payload
	found, err := c.GetJSON(ctx, c.ActivityCacheKey(ctx, id), &got)
	require.NoError(t, err)
	assert.False(t, found)
}
