package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
)

var (
	// ErrNotFound is returned when a request does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateRecord is returned when a request with the same identifier already exists.
	ErrDuplicateRecord = errors.New("record already exists")
	// ErrNotPending is returned when a bookkeeping update finds the request
	// no longer scheduled, e.g. it was removed while firing.
	ErrNotPending = errors.New("record is no longer pending")
)

// RequestRepository defines the contract for request persistence (e.g., a database).
type RequestRepository interface {
	// Save persists a new request.
	Save(ctx context.Context, r *model.Request) (*model.Request, error)

	// GetByID retrieves a request by its unique ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Request, error)

	// ListPending returns every scheduled request, oldest first.
	ListPending(ctx context.Context) ([]*model.Request, error)

	// ListDue returns scheduled requests whose fire time is before the given instant.
	ListDue(ctx context.Context, before time.Time, limit int) ([]*model.Request, error)

	// Update updates the bookkeeping fields of a request: status, attempts and fire times.
	Update(ctx context.Context, r *model.Request) error

	// Cancel removes the given requests from the pending set and returns the ids it cancelled.
	// Ids that are unknown or no longer pending are ignored.
	Cancel(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

// RequestCache defines the contract for a caching layer.
type RequestCache interface {
	// Get retrieves an item from the cache.
	Get(ctx context.Context, id uuid.UUID) (*model.Request, error)

	// Set adds an item to the cache for a specified duration
	Set(ctx context.Context, r *model.Request, expiration time.Duration) error

	// Delete removes an item from the cache.
	Delete(ctx context.Context, id uuid.UUID) error
}

// RequestQueue defines the contract for interacting with a delayed job queue.
// This provides an abstraction over a system like RabbitMQ.
type RequestQueue interface {
	// Publish schedules a request for processing once its fire time is reached.
	Publish(ctx context.Context, r *model.Request) error

	// PublishRetry schedules a request for a retry attempt with a specific delay.
	PublishRetry(ctx context.Context, r *model.Request, retryDelay time.Duration) error

	// PublishNow hands a request to the workers without any delay.
	PublishNow(ctx context.Context, r *model.Request) error
}

// AuthorizationStore keeps the authorization decision.
type AuthorizationStore interface {
	// Get returns the current settings, NotDetermined when nothing was recorded.
	Get(ctx context.Context) (*model.AuthorizationSettings, error)

	// Set records a decision.
	Set(ctx context.Context, s *model.AuthorizationSettings) error
}

// DeliveryFeed broadcasts requests that have just fired.
type DeliveryFeed interface {
	// PublishDelivered announces a delivered request to every subscriber.
	PublishDelivered(ctx context.Context, r *model.Request) error

	// SubscribeDelivered returns a stream of delivered requests and a function that ends the subscription.
	SubscribeDelivered(ctx context.Context) (<-chan *model.Request, func(), error)
}
