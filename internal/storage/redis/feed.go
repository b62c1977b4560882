package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/ilindan-dev/local-notifier/pkg/keybuilder"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var _ repo.DeliveryFeed = (*DeliveryFeed)(nil)

// DeliveryFeed broadcasts delivered requests over Redis pub/sub, so the
// worker process can reach subscribers connected to the API process.
type DeliveryFeed struct {
	redis   *goredis.Client
	channel string
	logger  zerolog.Logger
}

func NewDeliveryFeed(logger *zerolog.Logger, redis *goredis.Client) *DeliveryFeed {
	return &DeliveryFeed{
		redis:   redis,
		channel: keybuilder.RedisDeliveriesChannelBuild(),
		logger:  logger.With().Str("layer", "redis_feed").Logger(),
	}
}

// PublishDelivered announces a delivered request.
func (f *DeliveryFeed) PublishDelivered(ctx context.Context, n *model.Request) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery event: %w", err)
	}
	if err := f.redis.Publish(ctx, f.channel, payload).Err(); err != nil {
		f.logger.Error().Err(err).Stringer("id", n.ID).Msg("failed to publish delivery event")
		return err
	}
	return nil
}

// SubscribeDelivered relays pub/sub messages as requests until cancel is called
// or ctx is done.
func (f *DeliveryFeed) SubscribeDelivered(ctx context.Context) (<-chan *model.Request, func(), error) {
	sub := f.redis.Subscribe(ctx, f.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis: subscribe %s: %w", f.channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan *model.Request)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var n model.Request
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					f.logger.Warn().Err(err).Msg("dropping malformed delivery event")
					continue
				}
				select {
				case out <- &n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
