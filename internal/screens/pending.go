package screens

import (
	"context"

	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/rs/zerolog"
)

// PendingFetcher asks the center for its pending set.
type PendingFetcher struct {
	center NotificationCenter
	logger zerolog.Logger
}

func NewPendingFetcher(center NotificationCenter, logger *zerolog.Logger) *PendingFetcher {
	return &PendingFetcher{
		center: center,
		logger: logger.With().Str("component", "pending_fetcher").Logger(),
	}
}

// Pending returns the pending set in the center's order.
func (f *PendingFetcher) Pending(ctx context.Context) ([]*model.Request, error) {
	pending, err := f.center.PendingRequests(ctx)
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to fetch pending requests")
		return nil, err
	}
	f.logger.Info().Int("count", len(pending)).Msg("fetched pending requests")
	return pending, nil
}
