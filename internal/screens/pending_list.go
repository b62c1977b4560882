package screens

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/rs/zerolog"
)

// PendingList is the listing screen: a transient copy of the center's
// pending set that can be reloaded and trimmed.
type PendingList struct {
	center  NotificationCenter
	fetcher *PendingFetcher
	logger  zerolog.Logger

	mu         sync.Mutex
	rows       []*model.Request
	version    uint64
	refreshing bool

	removals sync.WaitGroup
}

func NewPendingList(center NotificationCenter, fetcher *PendingFetcher, logger *zerolog.Logger) *PendingList {
	return &PendingList{
		center:  center,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "pending_list").Logger(),
	}
}

// CheckAuthorization requests alert and sound permission unless it is
// already granted. Failures are only logged.
func (l *PendingList) CheckAuthorization(ctx context.Context) {
	settings, err := l.center.AuthorizationSettings(ctx)
	if err != nil {
		l.logger.Error().Err(err).Msg("failed to read authorization settings")
		return
	}
	if settings.IsAuthorized() {
		return
	}

	granted, err := l.center.RequestAuthorization(ctx, model.OptionAlert|model.OptionSound)
	if err != nil {
		l.logger.Error().Err(err).Msg("authorization request failed")
		return
	}
	l.logger.Info().Bool("granted", granted).Msg("authorization requested")
}

// Reload replaces the rows with the center's current pending set.
// Only the most recently started reload is applied; a reload that resolves
// after a newer one started is discarded. On error the rows are kept.
func (l *PendingList) Reload(ctx context.Context) error {
	l.mu.Lock()
	l.version++
	version := l.version
	l.refreshing = true
	l.mu.Unlock()

	pending, err := l.fetcher.Pending(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if version != l.version {
		l.logger.Debug().Uint64("version", version).Uint64("latest", l.version).Msg("discarding stale reload")
		return nil
	}
	l.refreshing = false
	if err != nil {
		return err
	}
	l.rows = pending
	return nil
}

// Rows returns a copy of the current rows.
func (l *PendingList) Rows() []*model.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*model.Request(nil), l.rows...)
}

func (l *PendingList) Refreshing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshing
}

// Remove drops the row at index right away and asks the center to remove it
// without waiting for the answer. It reports the removed identifier.
func (l *PendingList) Remove(ctx context.Context, index int) (uuid.UUID, bool) {
	l.mu.Lock()
	if index < 0 || index >= len(l.rows) {
		l.mu.Unlock()
		return uuid.Nil, false
	}
	id := l.rows[index].ID
	rows := make([]*model.Request, 0, len(l.rows)-1)
	rows = append(rows, l.rows[:index]...)
	l.rows = append(rows, l.rows[index+1:]...)
	l.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	l.removals.Add(1)
	go func() {
		defer l.removals.Done()
		if err := l.center.RemovePendingRequests(ctx, []uuid.UUID{id}); err != nil {
			l.logger.Error().Err(err).Stringer("id", id).Msg("failed to remove pending request")
			return
		}
		l.logger.Info().Stringer("id", id).Msg("pending request removed")
	}()
	return id, true
}

// Wait blocks until every removal started by Remove has finished.
func (l *PendingList) Wait() {
	l.removals.Wait()
}

// WillPresent answers how a request firing while the list is shown is presented.
func (l *PendingList) WillPresent(_ context.Context, r *model.Request) model.PresentationOptions {
	l.logger.Debug().Stringer("id", r.ID).Msg("presenting delivered request")
	return model.PresentAlert
}
