package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"luxury_hotel/internal/adapters/observability"
)

// metricLabel is the cache label on hotel_cache_events_total.
const metricLabel = "availability"

// Cache stores JSON values with a TTL. It satisfies domain.Cache.
type Cache struct{ rdb *redis.Client }

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}))
}

func NewWithClient(rdb *redis.Client) *Cache { return &Cache{rdb: rdb} }

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Cache) Close() error { return c.rdb.Close() }

// Get decodes the value at key into dst. A missing key is (false, nil); a
// value that does not decode counts as a miss and returns the decode error.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		observability.ObserveCache(metricLabel, "miss")
		return false, nil
	case err != nil:
		observability.ObserveCache(metricLabel, "error")
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		observability.ObserveCache(metricLabel, "miss")
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	observability.ObserveCache(metricLabel, "hit")
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, time.Duration(ttlSec)*time.Second).Err(); err != nil {
		observability.ObserveCache(metricLabel, "error")
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	observability.ObserveCache(metricLabel, "set")
	return nil
}
