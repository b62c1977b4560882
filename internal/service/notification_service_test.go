package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/ilindan-dev/local-notifier/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *NotificationService
	repo  *memory.RequestRepository
	queue *memory.Queue
	auth  *memory.AuthorizationStore
	feed  *memory.Feed
	now   time.Time
}

func newFixture(t *testing.T, autoGrant bool) *fixture {
	t.Helper()
	f := &fixture{
		repo:  memory.NewRequestRepository(),
		queue: memory.NewQueue(),
		auth:  memory.NewAuthorizationStore(),
		feed:  memory.NewFeed(),
		now:   time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
	cfg := &config.Config{Authorization: config.AuthorizationConfig{AutoGrant: autoGrant}}
	logger := zerolog.Nop()
	f.svc = NewNotificationService(cfg, f.repo, f.queue, f.auth, f.feed, &logger)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestAddSchedulesRequest(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	r := model.NewRequest(model.Content{Title: "Wake up"}, 5*time.Second)
	created, err := f.svc.Add(ctx, r)

	require.NoError(t, err)
	assert.Equal(t, r.ID, created.ID)
	assert.Equal(t, model.StatusScheduled, created.Status)
	assert.Equal(t, f.now.Add(5*time.Second), created.FireAt)

	require.Len(t, f.queue.Published, 1)
	assert.Equal(t, r.ID, f.queue.Published[0].ID)

	pending, err := f.svc.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Wake up", pending[0].Content.Title)
}

func TestAddAssignsMissingID(t *testing.T) {
	f := newFixture(t, true)

	created, err := f.svc.Add(context.Background(), &model.Request{Trigger: model.Trigger{Interval: time.Minute}})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
}

func TestAddRejectsPastTrigger(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.Add(context.Background(), model.NewRequest(model.Content{Title: "late"}, 0))

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidTrigger))
	assert.Empty(t, f.queue.Published)
}

func TestAddDuplicate(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	r := model.NewRequest(model.Content{Title: "once"}, time.Minute)

	_, err := f.svc.Add(ctx, r)
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, r)

	assert.True(t, errors.Is(err, repo.ErrDuplicateRecord))
	assert.Len(t, f.queue.Published, 1)
}

func TestAddQueueFailure(t *testing.T) {
	f := newFixture(t, true)
	f.queue.Err = errors.New("broker down")

	_, err := f.svc.Add(context.Background(), model.NewRequest(model.Content{Title: "x"}, time.Minute))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestRemovePendingRequests(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	keep, err := f.svc.Add(ctx, model.NewRequest(model.Content{Title: "keep"}, time.Minute))
	require.NoError(t, err)
	drop, err := f.svc.Add(ctx, model.NewRequest(model.Content{Title: "drop"}, time.Minute))
	require.NoError(t, err)

	require.NoError(t, f.svc.RemovePendingRequests(ctx, []uuid.UUID{drop.ID, uuid.New()}))

	pending, err := f.svc.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, keep.ID, pending[0].ID)

	removed, err := f.svc.GetRequestByID(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, removed.Status)

	assert.NoError(t, f.svc.RemovePendingRequests(ctx, nil))
}

func TestDueRequests(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	soon, err := f.svc.Add(ctx, model.NewRequest(model.Content{Title: "soon"}, 5*time.Second))
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, model.NewRequest(model.Content{Title: "later"}, time.Hour))
	require.NoError(t, err)

	due, err := f.svc.DueRequests(ctx, f.now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, soon.ID, due[0].ID)
}

func TestRequestAuthorizationGrantsOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	settings, err := f.svc.AuthorizationSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AuthorizationNotDetermined, settings.Status)

	granted, err := f.svc.RequestAuthorization(ctx, model.OptionAlert|model.OptionSound)
	require.NoError(t, err)
	assert.True(t, granted)

	settings, err = f.svc.AuthorizationSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AuthorizationAuthorized, settings.Status)
	assert.Equal(t, model.OptionAlert|model.OptionSound, settings.Options)

	// A second request does not widen the grant.
	granted, err = f.svc.RequestAuthorization(ctx, model.OptionBadge)
	require.NoError(t, err)
	assert.True(t, granted)
	settings, err = f.svc.AuthorizationSettings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.Options.Has(model.OptionBadge))
}

func TestRequestAuthorizationDenied(t *testing.T) {
	f := newFixture(t, false)

	granted, err := f.svc.RequestAuthorization(context.Background(), model.OptionAlert)

	require.NoError(t, err)
	assert.False(t, granted)
	settings, err := f.svc.AuthorizationSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.AuthorizationDenied, settings.Status)
}

func TestDeliveryFeed(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	events, cancel, err := f.svc.SubscribeDeliveries(ctx)
	require.NoError(t, err)
	defer cancel()

	r := model.NewRequest(model.Content{Title: "fired"}, time.Second)
	require.NoError(t, f.svc.PublishDelivered(ctx, r))

	select {
	case got := <-events:
		assert.Equal(t, r.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("delivery event not received")
	}
}
