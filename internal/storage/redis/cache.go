package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/ilindan-dev/local-notifier/pkg/keybuilder"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Ensure RequestCache implements the interface
var _ repo.RequestCache = (*RequestCache)(nil)

// RequestCache implements the repository.RequestCache interface
// using the standard go-redis client.
type RequestCache struct {
	redis  *goredis.Client
	logger zerolog.Logger
}

// NewRequestCache creates a new instance of the RequestCache.
func NewRequestCache(logger *zerolog.Logger, redis *goredis.Client) *RequestCache {
	return &RequestCache{
		redis:  redis,
		logger: logger.With().Str("layer", "redis_cache").Logger(),
	}
}

// Get retrieves an item from the cache.
func (c *RequestCache) Get(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	key := keybuilder.RedisNotificationKeyBuild(id)
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			c.logger.Debug().Str("key", key).Str("cache", "miss").Msg("request not found in cache")
			return nil, repo.ErrNotFound
		}
		c.logger.Error().Err(err).Str("key", key).Msg("failed to get key from redis")
		return nil, err
	}

	var n model.Request
	if err := json.Unmarshal(val, &n); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("failed to unmarshal request from cache")
		return nil, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	c.logger.Debug().Str("key", key).Str("cache", "hit").Msg("request found in cache")
	return &n, nil
}

// Set adds an item to the cache for a specified duration.
func (c *RequestCache) Set(ctx context.Context, n *model.Request, expiration time.Duration) error {
	key := keybuilder.RedisNotificationKeyBuild(n.ID)
	nBytes, err := json.Marshal(n)
	if err != nil {
		c.logger.Error().Err(err).Stringer("id", n.ID).Msg("failed to marshal request for cache")
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.redis.Set(ctx, key, nBytes, expiration).Err(); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("failed to set key in redis")
		return err
	}
	return nil
}

// Delete removes an item from the cache.
func (c *RequestCache) Delete(ctx context.Context, id uuid.UUID) error {
	key := keybuilder.RedisNotificationKeyBuild(id)
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("failed to delete key from redis")
		return err
	}
	return nil
}
