package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/rs/zerolog"
)

// Ensure CachedRequestRepository implements the interface
var _ repo.RequestRepository = (*CachedRequestRepository)(nil)

// CachedRequestRepository is a decorator for a RequestRepository
// that adds a per-request caching layer using Redis.
// List queries always go to the primary repository.
type CachedRequestRepository struct {
	primaryRepo repo.RequestRepository
	cache       repo.RequestCache
	logger      zerolog.Logger
	ttl         time.Duration
}

// NewCachedRequestRepository creates a new instance of the cached repository.
// It takes the primary repository and the cache as dependencies.
func NewCachedRequestRepository(
	primaryRepo repo.RequestRepository,
	cache repo.RequestCache,
	ttl time.Duration,
	logger *zerolog.Logger,
) *CachedRequestRepository {
	if ttl <= 0 {
		ttl = time.Hour * 24
	}
	return &CachedRequestRepository{
		primaryRepo: primaryRepo,
		cache:       cache,
		logger:      logger.With().Str("layer", "cached_repository").Logger(),
		ttl:         ttl,
	}
}

// Save first persists the request in the primary repository,
// then warms up the cache with the new data.
func (r *CachedRequestRepository) Save(ctx context.Context, n *model.Request) (*model.Request, error) {
	created, err := r.primaryRepo.Save(ctx, n)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, created, r.ttl); err != nil {
		r.logger.Error().Err(err).Stringer("id", created.ID).Msg("failed to cache request after save")
	}

	return created, nil
}

// GetByID implements the cache-aside pattern.
// It first tries to fetch the data from the cache. If it's a miss,
// it fetches from the primary repository, caches the result, and then returns it.
func (r *CachedRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	cached, err := r.cache.Get(ctx, id)
	if err == nil {
		return cached, nil
	}

	if !errors.Is(err, repo.ErrNotFound) {
		r.logger.Error().Err(err).Stringer("id", id).Msg("cache get error, falling back to primary repository")
	}

	primary, err := r.primaryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, primary, r.ttl); err != nil {
		r.logger.Error().Err(err).Stringer("id", primary.ID).Msg("failed to set cache after db fetch")
	}

	return primary, nil
}

// ListPending bypasses the cache.
func (r *CachedRequestRepository) ListPending(ctx context.Context) ([]*model.Request, error) {
	return r.primaryRepo.ListPending(ctx)
}

// ListDue bypasses the cache.
func (r *CachedRequestRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]*model.Request, error) {
	return r.primaryRepo.ListDue(ctx, before, limit)
}

// Update first updates the data in the primary repository,
// then invalidates the corresponding cache entry.
func (r *CachedRequestRepository) Update(ctx context.Context, n *model.Request) error {
	if err := r.primaryRepo.Update(ctx, n); err != nil {
		return err
	}

	if err := r.cache.Delete(ctx, n.ID); err != nil {
		r.logger.Error().Err(err).Stringer("id", n.ID).Msg("failed to invalidate cache after update")
	}

	return nil
}

// Cancel first cancels the requests in the primary repository,
// then invalidates the cache entries of the ones it cancelled.
func (r *CachedRequestRepository) Cancel(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	cancelled, err := r.primaryRepo.Cancel(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, id := range cancelled {
		if err := r.cache.Delete(ctx, id); err != nil {
			r.logger.Error().Err(err).Stringer("id", id).Msg("failed to invalidate cache after cancel")
		}
	}

	return cancelled, nil
}
