package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/config"
	deliveryHTTP "github.com/ilindan-dev/local-notifier/internal/delivery/http"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/ilindan-dev/local-notifier/internal/service"
	"github.com/ilindan-dev/local-notifier/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCenter(t *testing.T, autoGrant bool) (*Client, *service.NotificationService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()
	cfg := &config.Config{Authorization: config.AuthorizationConfig{AutoGrant: autoGrant}}
	svc := service.NewNotificationService(cfg, memory.NewRequestRepository(), memory.NewQueue(), memory.NewAuthorizationStore(), memory.NewFeed(), &logger)
	srv := httptest.NewServer(deliveryHTTP.NewRouter(deliveryHTTP.NewHandlers(svc, &logger)))
	t.Cleanup(srv.Close)

	cfg.Client = config.ClientConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}
	return NewClient(cfg, &logger), svc
}

func TestClientAddAndListPending(t *testing.T) {
	c, _ := newTestCenter(t, true)
	ctx := context.Background()

	r := model.NewRequest(model.Content{
		Title:       "Hello",
		Sound:       "default",
		Attachments: []model.Attachment{{Identifier: "duck", URL: "/tmp/duck.png", Type: "image/png"}},
		UserInfo:    map[string]string{"k": "v"},
	}, 5*time.Second)

	created, err := c.Add(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, r.ID, created.ID)
	assert.Equal(t, model.StatusScheduled, created.Status)

	pending, err := c.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, r.Content, pending[0].Content)
	assert.Equal(t, r.Trigger, pending[0].Trigger)
}

func TestClientMapsErrors(t *testing.T) {
	c, _ := newTestCenter(t, true)
	ctx := context.Background()

	r := model.NewRequest(model.Content{Title: "dup"}, 5*time.Second)
	_, err := c.Add(ctx, r)
	require.NoError(t, err)

	_, err = c.Add(ctx, r)
	assert.True(t, errors.Is(err, repo.ErrDuplicateRecord), err)

	bad := model.NewRequest(model.Content{}, 5*time.Second)
	bad.Trigger.Repeats = true
	_, err = c.Add(ctx, bad)
	assert.True(t, errors.Is(err, model.ErrInvalidTrigger), err)

	zero := model.NewRequest(model.Content{}, 0)
	_, err = c.Add(ctx, zero)
	assert.True(t, errors.Is(err, model.ErrInvalidTrigger), err)
}

func TestClientRemovePending(t *testing.T) {
	c, _ := newTestCenter(t, true)
	ctx := context.Background()
	a, err := c.Add(ctx, model.NewRequest(model.Content{Title: "a"}, time.Minute))
	require.NoError(t, err)
	b, err := c.Add(ctx, model.NewRequest(model.Content{Title: "b"}, time.Minute))
	require.NoError(t, err)

	require.NoError(t, c.RemovePendingRequests(ctx, []uuid.UUID{a.ID, uuid.New()}))
	require.NoError(t, c.RemovePendingRequests(ctx, nil))

	pending, err := c.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)
}

func TestClientAuthorization(t *testing.T) {
	c, _ := newTestCenter(t, false)
	ctx := context.Background()

	settings, err := c.AuthorizationSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AuthorizationNotDetermined, settings.Status)

	granted, err := c.RequestAuthorization(ctx, model.OptionAlert|model.OptionSound)
	require.NoError(t, err)
	assert.False(t, granted)

	settings, err = c.AuthorizationSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AuthorizationDenied, settings.Status)
	assert.False(t, settings.UpdatedAt.IsZero())
}

func TestClientSubscribeDeliveries(t *testing.T) {
	c, svc := newTestCenter(t, true)
	ctx := context.Background()

	events, cancel, err := c.SubscribeDeliveries(ctx)
	require.NoError(t, err)

	fired := model.NewRequest(model.Content{Title: "fired"}, time.Second)
	require.NoError(t, svc.PublishDelivered(ctx, fired))

	select {
	case got := <-events:
		assert.Equal(t, fired.ID, got.ID)
		assert.Equal(t, "fired", got.Content.Title)
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery event received")
	}

	cancel()
	cancel()
	for range events {
	}
}

func TestClientUnreachable(t *testing.T) {
	logger := zerolog.Nop()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewClient(&config.Config{Client: config.ClientConfig{BaseURL: url}}, &logger)

	_, err := c.PendingRequests(context.Background())

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"",
		"event:delivered",
		"data:{\"a\":1}",
		"",
		"event: delivered",
		"data: line one",
		"data: line two",
		"",
		"data: plain",
		"",
		"event: trailing",
	}, "\n")

	var got []event
	err := readEvents(strings.NewReader(stream), func(e event) bool {
		got = append(got, e)
		return true
	})

	require.NoError(t, err)
	assert.Equal(t, []event{
		{name: "delivered", data: `{"a":1}`},
		{name: "delivered", data: "line one\nline two"},
		{name: "message", data: "plain"},
	}, got)
}

func TestReadEventsStopsWhenHandlerDeclines(t *testing.T) {
	stream := "data: 1\n\ndata: 2\n\n"
	calls := 0

	err := readEvents(strings.NewReader(stream), func(event) bool {
		calls++
		return false
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
