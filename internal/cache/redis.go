package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctchen222/tictactoe-solver/internal/bot"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("cache")

const keyPrefix = "search:"

// RedisCache shares search results between processes through Redis.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a Redis-backed cache. A zero ttl keeps entries forever.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Get retrieves a cached result from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) (bot.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "RedisCache.Get")
	defer span.End()

	data, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return bot.Result{}, false, nil
	}
	if err != nil {
		return bot.Result{}, false, fmt.Errorf("failed to get search result from redis: %w", err)
	}

	var r bot.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return bot.Result{}, false, fmt.Errorf("failed to unmarshal search result: %w", err)
	}
	return r, true, nil
}

// Set stores a result in Redis.
func (c *RedisCache) Set(ctx context.Context, key string, r bot.Result) error {
	ctx, span := tracer.Start(ctx, "RedisCache.Set")
	defer span.End()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal search result: %w", err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store search result in redis: %w", err)
	}
	return nil
}
