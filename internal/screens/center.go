// Package screens holds the state and behavior of the terminal client's two
// screens, independent of how they are drawn.
package screens

import (
	"context"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
)

// NotificationCenter is the part of the notification center the screens use.
// The HTTP client implements it, and so does the service itself.
type NotificationCenter interface {
	Add(ctx context.Context, r *model.Request) (*model.Request, error)
	PendingRequests(ctx context.Context) ([]*model.Request, error)
	RemovePendingRequests(ctx context.Context, ids []uuid.UUID) error
	AuthorizationSettings(ctx context.Context) (*model.AuthorizationSettings, error)
	RequestAuthorization(ctx context.Context, opts model.AuthorizationOptions) (bool, error)
}
