package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/ilindan-dev/local-notifier/pkg/keybuilder"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var _ repo.AuthorizationStore = (*AuthorizationStore)(nil)

// AuthorizationStore keeps the authorization decision in a Redis hash.
// The key has no expiry: the decision lives as long as the Redis data set.
type AuthorizationStore struct {
	redis  *goredis.Client
	logger zerolog.Logger
}

func NewAuthorizationStore(logger *zerolog.Logger, redis *goredis.Client) *AuthorizationStore {
	return &AuthorizationStore{
		redis:  redis,
		logger: logger.With().Str("layer", "redis_authorization").Logger(),
	}
}

// Get returns the recorded settings, or NotDetermined when none exist.
func (s *AuthorizationStore) Get(ctx context.Context) (*model.AuthorizationSettings, error) {
	key := keybuilder.RedisAuthorizationKeyBuild()
	fields, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to read authorization settings")
		return nil, err
	}
	if len(fields) == 0 {
		return &model.AuthorizationSettings{Status: model.AuthorizationNotDetermined}, nil
	}
	return fromHash(fields)
}

// Set records the settings.
func (s *AuthorizationStore) Set(ctx context.Context, settings *model.AuthorizationSettings) error {
	key := keybuilder.RedisAuthorizationKeyBuild()
	if err := s.redis.HSet(ctx, key, toHash(settings)).Err(); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to write authorization settings")
		return err
	}
	s.logger.Info().Str("status", string(settings.Status)).Stringer("options", settings.Options).Msg("authorization settings stored")
	return nil
}

func toHash(s *model.AuthorizationSettings) map[string]interface{} {
	return map[string]interface{}{
		"status":     string(s.Status),
		"options":    strconv.Itoa(int(s.Options)),
		"updated_at": s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromHash(fields map[string]string) (*model.AuthorizationSettings, error) {
	opts, err := strconv.Atoi(fields["options"])
	if err != nil {
		return nil, fmt.Errorf("redis: corrupt authorization options %q: %w", fields["options"], err)
	}
	settings := &model.AuthorizationSettings{
		Status:  model.AuthorizationStatus(fields["status"]),
		Options: model.AuthorizationOptions(opts),
	}
	if raw := fields["updated_at"]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			settings.UpdatedAt = ts
		}
	}
	return settings, nil
}
