package leaderboardcache

import (
	"context"
	"testing"
	"time"

	leaderboarddomain "github.com/Black-And-White-Club/snakebench/app/modules/leaderboard/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb, time.Minute), mr
}

func TestRedisCache_RoundTripAndInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, gen, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	entries := []leaderboarddomain.Entry{
		{Rank: 1, Slug: "claude-3-haiku", GamesPlayed: 4, Wins: 3, Exposed: 27.5, ModelIDs: []int64{3}},
		{Rank: 2, Slug: "openai/gpt-4o", GamesPlayed: 12, Wins: 7, Exposed: 22, ModelIDs: []int64{1, 2}},
	}
	require.NoError(t, cache.Set(ctx, gen, entries))

	got, _, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entries, got)

	require.NoError(t, cache.Invalidate(ctx))
	_, _, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_SetAfterInvalidateIsDropped(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, gen, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// An ingest commits and invalidates while the stale rebuild is in flight.
	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.Set(ctx, gen, []leaderboarddomain.Entry{{Rank: 1, Slug: "stale"}}))

	_, newGen, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, gen+1, newGen)

	fresh := []leaderboarddomain.Entry{{Rank: 1, Slug: "fresh"}}
	require.NoError(t, cache.Set(ctx, newGen, fresh))
	got, _, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fresh, got)
}

func TestRedisCache_Expires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 0, []leaderboarddomain.Entry{{Rank: 1, Slug: "a"}}))
	mr.FastForward(2 * time.Minute)

	_, _, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_CorruptValue(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set(DefaultKey, "not json"))

	_, _, _, err := cache.Get(context.Background())
	require.Error(t, err)
}

func TestRedisCache_Unavailable(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	require.Error(t, cache.Invalidate(context.Background()))
}
