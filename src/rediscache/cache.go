package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Cache is a best-effort TTL cache in front of the expensive snapshot reads.
// Misses and redis failures fall through to a live read; a broken redis slows
// the API down but never breaks it.
type Cache struct {
	rd     *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(address string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	rd := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   0, // use default DB
	})
	if err := rd.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", address)
	}
	return &Cache{rd: rd, ttl: ttl, logger: logger.Named("rediscache")}, nil
}

// GetJSON loads key into out, reporting whether it was a usable hit. A nil
// cache always misses.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) bool {
	if c == nil {
		return false
	}
	raw, err := c.rd.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.logger.Warn("cache read failed, falling through", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// PutJSON stores v under key for the cache TTL, best effort.
func (c *Cache) PutJSON(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed encoding cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rd.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rd.Close()
}
