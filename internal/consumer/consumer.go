package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/ilindan-dev/local-notifier/internal/notifiers"
	"github.com/ilindan-dev/local-notifier/internal/service"
	"github.com/ilindan-dev/local-notifier/internal/storage/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	// defaultMaxRetries is the maximum number of presentation attempts for a request.
	defaultMaxRetries = 5
	// defaultWorkerCount is the default number of worker goroutines in the pool.
	defaultWorkerCount = 5
	// earlyTolerance absorbs clock skew between the broker TTL and our clock.
	earlyTolerance = time.Second
)

// Consumer listens to a RabbitMQ queue and fires requests using a pool of workers.
type Consumer struct {
	logger      zerolog.Logger
	conn        *amqp.Connection // Raw connection to create channels for each worker.
	service     *service.NotificationService
	queue       repo.RequestQueue
	notifier    notifiers.Notifier
	delegate    notifiers.PresentationDelegate
	workerCount int
	maxRetries  int
	now         func() time.Time
}

// New creates a new instance of Consumer.
func New(
	cfg *config.Config,
	logger *zerolog.Logger,
	conn *amqp.Connection,
	service *service.NotificationService,
	queue repo.RequestQueue,
	notifier notifiers.Notifier,
	delegate notifiers.PresentationDelegate,
) *Consumer {
	workers := cfg.Worker.Count
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	retries := cfg.Worker.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	return &Consumer{
		logger:      logger.With().Str("component", "consumer").Logger(),
		conn:        conn,
		service:     service,
		queue:       queue,
		notifier:    notifier,
		delegate:    delegate,
		workerCount: workers,
		maxRetries:  retries,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the worker pool to process messages from the queue.
// This is a blocking method that will run until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info().Int("count", c.workerCount).Msg("Starting worker pool")
	var wg sync.WaitGroup

	for i := 0; i < c.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.runWorker(ctx, workerID)
		}(i + 1)
	}

	wg.Wait()
	c.logger.Info().Msg("Consumer stopped")
}

// runWorker contains the main logic for a single worker goroutine.
func (c *Consumer) runWorker(ctx context.Context, workerID int) {
	logger := c.logger.With().Int("worker_id", workerID).Logger()
	logger.Info().Msg("Worker started")

	ch, err := c.conn.Channel()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open channel for worker")
		return
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error().Err(err).Msg("Failed to set QoS")
		return
	}

	msgs, err := ch.Consume(
		rabbitmq.NotificationsQueue,
		fmt.Sprintf("worker-%d", workerID), // A unique consumer tag.
		false,                              // autoAck: false. We will manually acknowledge messages.
		false,                              // exclusive
		false,                              // noLocal
		false,                              // noWait
		nil,                                // args
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register a consumer")
		return
	}

	logger.Info().Msg("Worker is waiting for messages")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Worker stopping due to context cancellation")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn().Msg("Message channel closed by RabbitMQ, worker stopping")
				return
			}
			c.handleMessage(ctx, msg, logger)
		}
	}
}

// handleMessage fires a single request taken from the queue.
// The stored request is the source of truth; the message only carries its ID.
func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery, logger zerolog.Logger) {
	var envelope model.Request
	if err := json.Unmarshal(msg.Body, &envelope); err != nil {
		logger.Error().Err(err).Msg("Failed to unmarshal message, rejecting")
		_ = msg.Nack(false, false)
		return
	}

	log := logger.With().Stringer("notification_id", envelope.ID).Logger()

	r, err := c.service.GetRequestByID(ctx, envelope.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("Request is unknown, skipping")
		} else {
			// Still scheduled in storage, the sweeper picks it up again.
			log.Error().Err(err).Msg("Failed to load request, leaving it to the sweeper")
		}
		_ = msg.Ack(false)
		return
	}
	if r.Status != model.StatusScheduled {
		log.Warn().Str("status", string(r.Status)).Msg("Request is no longer pending, skipping")
		_ = msg.Ack(false)
		return
	}
	now := c.now()
	if r.FireAt.After(now.Add(earlyTolerance)) {
		log.Debug().Time("fire_at", r.FireAt).Msg("Stale message for a rescheduled request, skipping")
		_ = msg.Ack(false)
		return
	}

	log.Info().Int("attempt", r.Attempts+1).Msg("Firing request")
	if err := c.present(ctx, r, log); err != nil {
		c.handleSendError(ctx, r, err, msg, log)
		return
	}

	if r.Trigger.Repeats {
		c.reschedule(ctx, r, now, msg, log)
		return
	}

	r.Status = model.StatusDelivered
	r.DeliveredAt = &now
	if !c.record(ctx, r, msg, log, "delivery") {
		return
	}
	c.announce(ctx, r, log)
	_ = msg.Ack(false)
}

// present hands the request to the notifier with the options the delegate
// asked for, restricted to what the user authorized. Without authorization
// the request fires silently.
func (c *Consumer) present(ctx context.Context, r *model.Request, log zerolog.Logger) error {
	settings, err := c.service.AuthorizationSettings(ctx)
	if err != nil {
		return fmt.Errorf("read authorization: %w", err)
	}

	opts := model.PresentNone
	if settings.IsAuthorized() {
		opts = c.delegate.WillPresent(ctx, r) & settings.Options
	}
	log.Debug().Stringer("presentation", opts).Msg("Presenting request")

	return c.notifier.Send(ctx, r, opts)
}

// reschedule moves a repeating request to its next fire time and publishes it again.
func (c *Consumer) reschedule(ctx context.Context, r *model.Request, now time.Time, msg amqp.Delivery, log zerolog.Logger) {
	r.DeliveredAt = &now
	r.Attempts = 0
	r.FireAt = nextFireAt(r.FireAt, r.Trigger.Interval, now)
	if !c.record(ctx, r, msg, log, "next occurrence") {
		return
	}
	if err := c.queue.Publish(ctx, r); err != nil {
		// Stored as scheduled, so the sweeper republishes it once it is overdue.
		log.Error().Err(err).Msg("Failed to publish next occurrence")
	}
	log.Info().Time("next_fire_at", r.FireAt).Msg("Repeating request rescheduled")
	c.announce(ctx, r, log)
	_ = msg.Ack(false)
}

// record stores the outcome of a firing. When it returns false the message
// has already been settled: acked if the request left the pending set while
// it was presented, requeued if storage failed.
func (c *Consumer) record(ctx context.Context, r *model.Request, msg amqp.Delivery, log zerolog.Logger, outcome string) bool {
	err := c.service.UpdateRequest(ctx, r)
	switch {
	case err == nil:
		return true
	case errors.Is(err, repo.ErrNotPending), errors.Is(err, repo.ErrNotFound):
		log.Info().Str("outcome", outcome).Msg("Request was removed while firing, dropping it")
		_ = msg.Ack(false)
	default:
		log.Error().Err(err).Str("outcome", outcome).Msg("CRITICAL: failed to record firing outcome")
		_ = msg.Nack(false, true)
	}
	return false
}

func (c *Consumer) announce(ctx context.Context, r *model.Request, log zerolog.Logger) {
	if err := c.service.PublishDelivered(ctx, r); err != nil {
		log.Warn().Err(err).Msg("Delivery event was not published")
	}
}

// handleSendError encapsulates the logic for processing failed presentations.
func (c *Consumer) handleSendError(ctx context.Context, r *model.Request, sendErr error, msg amqp.Delivery, log zerolog.Logger) {
	r.Attempts++

	if r.Attempts >= c.maxRetries {
		log.Error().Err(sendErr).Int("attempts", r.Attempts).Msg("Max retries reached, failing request")
		r.Status = model.StatusFailed
		if c.record(ctx, r, msg, log, "failure") {
			_ = msg.Ack(false)
		}
		return
	}

	backoffDuration := calculateExponentialBackoff(r.Attempts)
	log.Warn().
		Err(sendErr).
		Int("attempt", r.Attempts).
		Dur("backoff", backoffDuration).
		Msg("Presentation failed, scheduling retry")

	// The new fire time keeps the sweeper away while the retry waits.
	r.FireAt = c.now().Add(backoffDuration)
	if !c.record(ctx, r, msg, log, "retry attempt") {
		return
	}

	if err := c.queue.PublishRetry(ctx, r, backoffDuration); err != nil {
		log.Error().Err(err).Msg("CRITICAL: failed to publish message to retry queue")
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}

// nextFireAt returns the first occurrence of the schedule after now.
func nextFireAt(prev time.Time, interval time.Duration, now time.Time) time.Time {
	next := prev.Add(interval)
	if next.After(now) {
		return next
	}
	missed := now.Sub(next)/interval + 1
	return next.Add(missed * interval)
}

// calculateExponentialBackoff implements the exponential backoff strategy.
// Formula: 5s * 2^(attempt)
func calculateExponentialBackoff(attempt int) time.Duration {
	baseDelay := 5.0
	delay := baseDelay * math.Pow(2, float64(attempt))
	return time.Duration(delay) * time.Second
}
