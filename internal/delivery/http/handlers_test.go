package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/ilindan-dev/local-notifier/internal/service"
	"github.com/ilindan-dev/local-notifier/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router *gin.Engine
	svc    *service.NotificationService
	repo   *memory.RequestRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	cfg := &config.Config{Authorization: config.AuthorizationConfig{AutoGrant: true}}
	repository := memory.NewRequestRepository()
	svc := service.NewNotificationService(cfg, repository, memory.NewQueue(), memory.NewAuthorizationStore(), memory.NewFeed(), &logger)
	return &fixture{
		router: NewRouter(NewHandlers(svc, &logger)),
		svc:    svc,
		repo:   repository,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) add(t *testing.T, title string) RequestResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/notifications", CreateRequest{Title: title, IntervalSeconds: 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp RequestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAddRequest(t *testing.T) {
	f := newFixture(t)

	resp := f.add(t, "Wake up")

	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Equal(t, "Wake up", resp.Title)
	assert.Equal(t, "scheduled", resp.Status)
	assert.Equal(t, 5.0, resp.IntervalSeconds)
	assert.Empty(t, resp.Attachments)
}

func TestAddRequestValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing interval", CreateRequest{Title: "x"}},
		{"negative interval", CreateRequest{Title: "x", IntervalSeconds: -1}},
		{"sub-millisecond interval", CreateRequest{Title: "x", IntervalSeconds: 0.0005}},
		{"short repeating interval", CreateRequest{Title: "x", IntervalSeconds: 5, Repeats: true}},
		{"attachment without url", CreateRequest{Title: "x", IntervalSeconds: 5, Attachments: []AttachmentDTO{{Identifier: "a"}}}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/notifications", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAddRequestMissingIntervalIsInvalidTrigger(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/notifications", CreateRequest{Title: "x"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Error, model.ErrInvalidTrigger.Error()), body.Error)
}

func TestAddRequestDuplicateID(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	body := CreateRequest{ID: &id, Title: "once", IntervalSeconds: 5}

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/notifications", body).Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/v1/notifications", body).Code)
}

func TestGetRequestByID(t *testing.T) {
	f := newFixture(t)
	created := f.add(t, "find me")

	w := f.do(t, http.MethodGet, "/api/v1/notifications/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp RequestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/notifications/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/notifications/nope", nil).Code)
}

func TestListAndRemovePending(t *testing.T) {
	f := newFixture(t)
	first := f.add(t, "first")
	second := f.add(t, "second")
	third := f.add(t, "third")

	w := f.do(t, http.MethodDelete, "/api/v1/pending?id="+first.ID.String()+"&id="+third.ID.String()+"&id="+uuid.NewString(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []RequestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/v1/notifications/"+second.ID.String(), nil).Code)
	w = f.do(t, http.MethodGet, "/api/v1/pending", nil)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestRemovePendingRejectsBadID(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodDelete, "/api/v1/pending?id=bad", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthorizationFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/authorization", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var settings AuthorizationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, "not_determined", settings.Status)

	w = f.do(t, http.MethodPost, "/api/v1/authorization", AuthorizationRequest{Options: []string{"alert", "sound", "badge"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"granted":true}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/v1/authorization", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, "authorized", settings.Status)
	assert.Equal(t, []string{"alert", "sound", "badge"}, settings.Options)

	got, err := settings.ToModel()
	require.NoError(t, err)
	assert.True(t, got.IsAuthorized())
}

func TestRequestAuthorizationRejectsUnknownOption(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/authorization", AuthorizationRequest{Options: []string{"vibrate"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStreamDeliveries(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	fired := model.NewRequest(model.Content{Title: "fired"}, time.Second)
	require.NoError(t, f.svc.PublishDelivered(ctx, fired))

	var event, data string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if data != "" {
			break
		}
	}

	assert.Equal(t, "delivered", event)
	var got RequestResponse
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, fired.ID, got.ID)
	assert.Equal(t, "fired", got.Title)
}

func TestRequestMappersRoundTrip(t *testing.T) {
	r := model.NewRequest(model.Content{
		Title:       "t",
		Attachments: []model.Attachment{{Identifier: "duck", URL: "/a/duck.png", Type: "image/png"}},
		UserInfo:    map[string]string{"k": "v"},
	}, 1500*time.Millisecond)

	back := NewCreateRequest(r).ToModel()

	assert.Equal(t, r.ID, back.ID)
	assert.Equal(t, r.Content, back.Content)
	assert.Equal(t, r.Trigger, back.Trigger)
}
