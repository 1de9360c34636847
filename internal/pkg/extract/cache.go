package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appredis "github.com/bookableu/core/internal/pkg/redis"
)

const cacheKeyPrefix = "bk:extract:"

// RedisCache persists extraction results in redis with a TTL. It exists so
// re-uploads of the same file skip the parse.
type RedisCache struct {
	client *appredis.Client
	ttl    time.Duration
}

func NewRedisCache(client *appredis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Result, bool, error) {
	data, err := c.client.GetBytes(ctx, cacheKeyPrefix+key)
	if err != nil {
		return Result{}, false, fmt.Errorf("cache get: %w", err)
	}
	if data == nil {
		return Result{}, false, nil
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, false, fmt.Errorf("cache decode: %w", err)
	}
	return result, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+key, data, c.ttl); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
