package leaderboardcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	leaderboarddomain "github.com/Black-And-White-Club/snakebench/app/modules/leaderboard/domain"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKey is where the built leaderboard is stored.
	DefaultKey = "snakebench:leaderboard:v1"
	// DefaultGenerationKey counts invalidations of DefaultKey.
	DefaultGenerationKey = "snakebench:leaderboard:generation"
	DefaultTTL           = 5 * time.Minute
)

// RedisCache stores the built leaderboard as one JSON value. A write only lands if no
// invalidation happened since the generation it was built against was read.
type RedisCache struct {
	rdb    redis.UniversalClient
	key    string
	genKey string
	ttl    time.Duration
}

func NewRedisCache(rdb redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{rdb: rdb, key: DefaultKey, genKey: DefaultGenerationKey, ttl: ttl}
}

// Get returns the cached leaderboard and the current generation. ok is false on a miss.
func (c *RedisCache) Get(ctx context.Context) (entries []leaderboarddomain.Entry, gen int64, ok bool, err error) {
	vals, err := c.rdb.MGet(ctx, c.genKey, c.key).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("leaderboardcache.Get: %w", err)
	}
	gen, err = parseGeneration(vals[0])
	if err != nil {
		return nil, 0, false, fmt.Errorf("leaderboardcache.Get: %w", err)
	}
	raw, isString := vals[1].(string)
	if !isString {
		return nil, gen, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, gen, false, fmt.Errorf("leaderboardcache.Get: decode: %w", err)
	}
	return entries, gen, true, nil
}

// Set stores entries built after reading generation gen. It is a no-op when the
// cache was invalidated in the meantime.
func (c *RedisCache) Set(ctx context.Context, gen int64, entries []leaderboarddomain.Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("leaderboardcache.Set: encode: %w", err)
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, c.genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		current, err := parseGeneration(cur)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, raw, c.ttl)
			return nil
		})
		return err
	}, c.genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("leaderboardcache.Set: %w", err)
	}
	return nil
}

// Invalidate drops the cached leaderboard and bumps the generation; the next read rebuilds it.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("leaderboardcache.Invalidate: %w", err)
	}
	return nil
}

func parseGeneration(v any) (int64, error) {
	switch s := v.(type) {
	case nil:
		return 0, nil
	case string:
		if s == "" {
			return 0, nil
		}
		gen, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad generation %q: %w", s, err)
		}
		return gen, nil
	default:
		return 0, fmt.Errorf("unexpected generation type %T", v)
	}
}
