package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/rs/zerolog"
)

// NotificationService is the notification center: it owns the pending set,
// the authorization decision and the delivery feed.
// It orchestrates the repository and the queue.
type NotificationService struct {
	repo      repo.RequestRepository
	queue     repo.RequestQueue
	auth      repo.AuthorizationStore
	feed      repo.DeliveryFeed
	autoGrant bool
	now       func() time.Time
	logger    zerolog.Logger
}

func NewNotificationService(
	cfg *config.Config,
	repo repo.RequestRepository,
	queue repo.RequestQueue,
	auth repo.AuthorizationStore,
	feed repo.DeliveryFeed,
	logger *zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		repo:      repo,
		queue:     queue,
		auth:      auth,
		feed:      feed,
		autoGrant: cfg.Authorization.AutoGrant,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With().Str("layer", "service").Logger(),
	}
}

// Add validates a request, saves it as pending, and publishes it to the delay queue.
// The fire time is computed from the trigger interval at submission time.
func (s *NotificationService) Add(ctx context.Context, r *model.Request) (*model.Request, error) {
	if err := r.Trigger.Validate(); err != nil {
		s.logger.Warn().Err(err).Msg("rejecting request")
		return nil, err
	}

	n := *r
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.Status = model.StatusScheduled
	n.Attempts = 0
	n.DeliveredAt = nil
	n.FireAt = s.now().Add(n.Trigger.Interval)

	log := s.logger.With().Stringer("id", n.ID).Logger()
	log.Info().Dur("interval", n.Trigger.Interval).Bool("repeats", n.Trigger.Repeats).Msg("adding notification request")

	created, err := s.repo.Save(ctx, &n)
	if err != nil {
		log.Error().Err(err).Msg("failed to save notification request")
		return nil, err
	}

	if err := s.queue.Publish(ctx, created); err != nil {
		log.Error().Err(err).Msg("CRITICAL: failed to publish notification request to queue after saving")
		return nil, fmt.Errorf("failed to schedule notification request: %w", err)
	}
	log.Info().Time("fire_at", created.FireAt).Msg("notification request scheduled")

	return created, nil
}

// PendingRequests returns the pending set in repository order.
func (s *NotificationService) PendingRequests(ctx context.Context) ([]*model.Request, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list pending requests")
		return nil, err
	}
	s.logger.Debug().Int("count", len(pending)).Msg("listed pending requests")
	return pending, nil
}

// GetRequestByID retrieves a request by its ID.
// The repository decorator handles the cache-aside logic transparently.
func (s *NotificationService) GetRequestByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Stringer("id", id).Msg("failed to get notification request")
		return nil, err
	}
	return r, nil
}

// DueRequests returns pending requests whose fire time is before the given instant.
func (s *NotificationService) DueRequests(ctx context.Context, before time.Time, limit int) ([]*model.Request, error) {
	due, err := s.repo.ListDue(ctx, before, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list due requests")
		return nil, err
	}
	return due, nil
}

// UpdateRequest is used by the consumer to record the outcome of a presentation attempt.
// The repository decorator will handle cache invalidation.
func (s *NotificationService) UpdateRequest(ctx context.Context, r *model.Request) error {
	if err := s.repo.Update(ctx, r); err != nil {
		s.logger.Error().Err(err).Stringer("id", r.ID).Msg("failed to update notification request")
		return err
	}
	return nil
}

// RemovePendingRequests removes the given requests from the pending set.
// Identifiers that are unknown or already fired are ignored.
func (s *NotificationService) RemovePendingRequests(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	cancelled, err := s.repo.Cancel(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("requested", len(ids)).Msg("failed to remove pending requests")
		return err
	}
	s.logger.Info().Int("requested", len(ids)).Int("removed", len(cancelled)).Msg("removed pending requests")
	return nil
}

// AuthorizationSettings returns the recorded authorization decision.
func (s *NotificationService) AuthorizationSettings(ctx context.Context) (*model.AuthorizationSettings, error) {
	settings, err := s.auth.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read authorization settings")
		return nil, err
	}
	return settings, nil
}

// RequestAuthorization asks for permission to present with the given options.
// Only the first request decides; later ones return the recorded decision.
func (s *NotificationService) RequestAuthorization(ctx context.Context, opts model.AuthorizationOptions) (bool, error) {
	current, err := s.auth.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read authorization settings")
		return false, err
	}
	if current.Status != model.AuthorizationNotDetermined {
		s.logger.Info().Str("status", string(current.Status)).Msg("authorization already determined")
		return current.IsAuthorized(), nil
	}

	decided := &model.AuthorizationSettings{
		Status:    model.AuthorizationDenied,
		UpdatedAt: s.now(),
	}
	if s.autoGrant {
		decided.Status = model.AuthorizationAuthorized
		decided.Options = opts
	}
	if err := s.auth.Set(ctx, decided); err != nil {
		s.logger.Error().Err(err).Msg("failed to record authorization decision")
		return false, err
	}

	s.logger.Info().Str("status", string(decided.Status)).Stringer("options", opts).Msg("authorization decided")
	return decided.IsAuthorized(), nil
}

// PublishDelivered announces a fired request to the delivery feed.
func (s *NotificationService) PublishDelivered(ctx context.Context, r *model.Request) error {
	if err := s.feed.PublishDelivered(ctx, r); err != nil {
		s.logger.Error().Err(err).Stringer("id", r.ID).Msg("failed to publish delivery event")
		return err
	}
	return nil
}

// SubscribeDeliveries streams requests as they fire until cancel is called.
func (s *NotificationService) SubscribeDeliveries(ctx context.Context) (<-chan *model.Request, func(), error) {
	ch, cancel, err := s.feed.SubscribeDelivered(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to deliveries")
		return nil, nil, err
	}
	return ch, cancel, nil
}
