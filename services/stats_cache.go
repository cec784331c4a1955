package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	statsCachePrefix     = "overrun:stats:v:"
	statsCacheVersionKey = "overrun:stats:version"
)

// StatsCache stores computed payment statistics. Invalidate drops every
// cached entry at once.
type StatsCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	Invalidate(ctx context.Context)
}

// RedisStatsCache keys entries under a version counter; bumping the counter
// orphans older entries, which then expire on their TTL.
type RedisStatsCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsCache returns a Redis-backed cache, or a no-op cache when client is nil.
func NewStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) StatsCache {
	if client == nil {
		return noopStatsCache{}
	}
	return &RedisStatsCache{redis: client, ttl: ttl, logger: logger}
}

func (c *RedisStatsCache) Get(ctx context.Context, key string, dest interface{}) bool {
	version, err := c.version(ctx)
	if err != nil {
		return false
	}
	data, err := c.redis.Get(ctx, c.key(version, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("stats cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *RedisStatsCache) Set(ctx context.Context, key string, value interface{}) {
	version, err := c.version(ctx)
	if err != nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("stats cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, c.key(version, key), data, c.ttl).Err(); err != nil {
		c.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisStatsCache) Invalidate(ctx context.Context) {
	if err := c.redis.Incr(ctx, statsCacheVersionKey).Err(); err != nil {
		c.logger.Error("stats cache invalidation failed", zap.Error(err))
	}
}

func (c *RedisStatsCache) version(ctx context.Context) (int64, error) {
	v, err := c.redis.Get(ctx, statsCacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.redis.SetNX(ctx, statsCacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return v, err
}

func (c *RedisStatsCache) key(version int64, key string) string {
	return fmt.Sprintf("%s%d:%s", statsCachePrefix, version, key)
}

type noopStatsCache struct{}

func (noopStatsCache) Get(context.Context, string, interface{}) bool { return false }
func (noopStatsCache) Set(context.Context, string, interface{})      {}
func (noopStatsCache) Invalidate(context.Context)                    {}
