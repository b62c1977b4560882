// Package sweeper republishes scheduled requests the delay queue failed to fire.
//
// Per-message TTLs expire only at the head of a queue, so a long delay can hold
// back shorter ones queued behind it. The sweeper bounds that lag to the grace
// period plus one tick of the schedule.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/ilindan-dev/local-notifier/internal/config"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/ilindan-dev/local-notifier/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	defaultSchedule = "*/15 * * * * *"
	defaultGrace    = 30 * time.Second
	defaultBatch    = 100
	sweepTimeout    = 10 * time.Second
)

type Sweeper struct {
	cronEngine *cron.Cron
	service    *service.NotificationService
	queue      repo.RequestQueue
	schedule   string
	grace      time.Duration
	batch      int
	now        func() time.Time
	logger     zerolog.Logger
}

func New(cfg *config.Config, svc *service.NotificationService, queue repo.RequestQueue, logger *zerolog.Logger) *Sweeper {
	log := logger.With().Str("component", "sweeper").Logger()

	s := &Sweeper{
		service:  svc,
		queue:    queue,
		schedule: cfg.Sweeper.Schedule,
		grace:    cfg.Sweeper.Grace,
		batch:    cfg.Sweeper.Batch,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log,
	}
	if s.schedule == "" {
		s.schedule = defaultSchedule
	}
	if s.grace <= 0 {
		s.grace = defaultGrace
	}
	if s.batch <= 0 {
		s.batch = defaultBatch
	}
	s.cronEngine = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
		cron.WithLogger(cron.PrintfLogger(&s.logger)),
	)
	return s
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	s.logger.Info().Str("schedule", s.schedule).Dur("grace", s.grace).Msg("Starting sweeper")

	_, err := s.cronEngine.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("sweeper: invalid schedule %q: %w", s.schedule, err)
	}

	s.cronEngine.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cronEngine.Stop()
	select {
	case <-done.Done():
		s.logger.Info().Msg("Sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep publishes every request overdue by more than the grace period for
// immediate processing and reports how many it published.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	due, err := s.service.DueRequests(ctx, s.now().Add(-s.grace), s.batch)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, r := range due {
		if err := s.queue.PublishNow(ctx, r); err != nil {
			s.logger.Error().Err(err).Stringer("notification_id", r.ID).Msg("Failed to republish overdue request")
			continue
		}
		published++
	}

	if len(due) > 0 {
		s.logger.Warn().Int("overdue", len(due)).Int("republished", published).Msg("Republished overdue requests")
	}
	return published, nil
}
