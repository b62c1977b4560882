package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Ensure RabbitMQQueue implements the repository interface at compile time.
var _ repo.RequestQueue = (*RabbitMQQueue)(nil)

// Constants for our RabbitMQ topology.
const (
	WaitExchange          = "wait.exchange"
	RetryExchange         = "retry.exchange"
	NotificationsExchange = "notifications.exchange"

	NotificationsQueue = "notifications.queue.process"
	WaitQueue          = "wait.queue.delay"
	RetryQueue         = "retry.queue.delay"

	Direct = "direct"
)

// RabbitMQQueue implements the RequestQueue interface. It acts as a PUBLISHER.
// Delays are per-message TTLs on queues that dead-letter into the processing exchange.
type RabbitMQQueue struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger zerolog.Logger
}

// NewRabbitMQQueue creates a new instance of the RabbitMQQueue publisher.
// It receives a shared amqp.Connection to create its own channel.
func NewRabbitMQQueue(conn *amqp.Connection, logger *zerolog.Logger) (*RabbitMQQueue, error) {
	channel, err := conn.Channel()
	if err != nil {
		logger.Error().Err(err).Msg("storage: rabbitMQ: New: Failed to open a channel")
		return nil, fmt.Errorf("storage: rabbitMQ: New: Failed to open a channel: %w", err)
	}

	queue := &RabbitMQQueue{
		conn:   conn,
		ch:     channel,
		logger: logger.With().Str("component", "rabbitmq_publisher").Logger(),
	}

	if err = queue.setupTopology(); err != nil {
		queue.logger.Error().Err(err).Msg("storage: rabbitMQ: New: Failed to setup topology")
		return nil, fmt.Errorf("storage: rabbitMQ: New: Failed to setup topology: %w", err)
	}

	return queue, nil
}

// setupTopology declares all necessary exchanges and queues.
func (q *RabbitMQQueue) setupTopology() error {
	q.logger.Info().Msg("setting up rabbitmq topology")

	for _, name := range []string{NotificationsExchange, WaitExchange, RetryExchange} {
		if err := q.ch.ExchangeDeclare(name, Direct, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", name, err)
		}
	}

	queues := []struct {
		name     string
		exchange string
		args     amqp.Table
	}{
		{NotificationsQueue, NotificationsExchange, nil},
		{WaitQueue, WaitExchange, amqp.Table{"x-dead-letter-exchange": NotificationsExchange}},
		{RetryQueue, RetryExchange, amqp.Table{"x-dead-letter-exchange": NotificationsExchange}},
	}
	for _, qi := range queues {
		if _, err := q.ch.QueueDeclare(qi.name, true, false, false, false, qi.args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", qi.name, err)
		}
		if err := q.ch.QueueBind(qi.name, "", qi.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to exchange %s: %w", qi.name, qi.exchange, err)
		}
	}

	q.logger.Info().Msg("rabbitmq topology setup successful")
	return nil
}

// Publish schedules a request for processing at its fire time.
func (q *RabbitMQQueue) Publish(ctx context.Context, n *model.Request) error {
	msg, err := newPublishing(n, time.Until(n.FireAt))
	if err != nil {
		q.logger.Error().Err(err).Stringer("id", n.ID).Msg("failed to marshal request")
		return err
	}
	return q.ch.PublishWithContext(ctx, WaitExchange, "", false, false, msg)
}

// PublishRetry schedules a request for a retry attempt.
func (q *RabbitMQQueue) PublishRetry(ctx context.Context, n *model.Request, retryDelay time.Duration) error {
	msg, err := newPublishing(n, retryDelay)
	if err != nil {
		q.logger.Error().Err(err).Stringer("id", n.ID).Msg("failed to marshal request for retry")
		return err
	}
	return q.ch.PublishWithContext(ctx, RetryExchange, "", false, false, msg)
}

// PublishNow routes a request straight to the processing queue.
func (q *RabbitMQQueue) PublishNow(ctx context.Context, n *model.Request) error {
	msg, err := newPublishing(n, 0)
	if err != nil {
		q.logger.Error().Err(err).Stringer("id", n.ID).Msg("failed to marshal request for immediate processing")
		return err
	}
	msg.Expiration = ""
	return q.ch.PublishWithContext(ctx, NotificationsExchange, "", false, false, msg)
}

// Close gracefully shuts down the channel. The connection is managed by Fx.
func (q *RabbitMQQueue) Close() error {
	if q.ch != nil {
		return q.ch.Close()
	}
	return nil
}

// newPublishing builds a persistent JSON message expiring after delay.
// A negative delay is clamped to zero.
func newPublishing(n *model.Request, delay time.Duration) (amqp.Publishing, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	if delay < 0 {
		delay = 0
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    n.ID.String(),
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
	}, nil
}
