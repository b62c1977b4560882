package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/ilindan-dev/local-notifier/internal/service"
	"github.com/rs/zerolog"
)

// keepAliveInterval is how often an idle event stream gets a comment line.
const keepAliveInterval = 30 * time.Second

type Handlers struct {
	service *service.NotificationService
	logger  zerolog.Logger
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *service.NotificationService, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger.With().Str("layer", "http_handler").Logger(),
	}
}

// RegisterRoutes sets up the routing for the notification API.
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/notifications", h.AddRequest)
		api.GET("/notifications/:id", h.GetRequestByID)
		api.DELETE("/notifications/:id", h.RemoveRequest)

		api.GET("/pending", h.ListPending)
		api.DELETE("/pending", h.RemovePending)

		api.GET("/authorization", h.GetAuthorization)
		api.POST("/authorization", h.RequestAuthorization)

		api.GET("/events", h.StreamDeliveries)
	}
}

// AddRequest handles the HTTP request for adding a notification request.
func (h *Handlers) AddRequest(c *gin.Context) {
	var req CreateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	created, err := h.service.Add(c.Request.Context(), req.ToModel())
	if err != nil {
		h.writeError(c, err, "failed to add notification request")
		return
	}

	c.JSON(http.StatusCreated, NewRequestResponse(created))
}

// GetRequestByID handles the HTTP request to retrieve a notification request.
func (h *Handlers) GetRequestByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	r, err := h.service.GetRequestByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to retrieve notification request")
		return
	}

	c.JSON(http.StatusOK, NewRequestResponse(r))
}

// RemoveRequest removes a single request from the pending set.
func (h *Handlers) RemoveRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.RemovePendingRequests(c.Request.Context(), []uuid.UUID{id}); err != nil {
		h.writeError(c, err, "failed to remove notification request")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListPending returns the pending set.
func (h *Handlers) ListPending(c *gin.Context) {
	pending, err := h.service.PendingRequests(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to list pending requests")
		return
	}

	out := make([]RequestResponse, 0, len(pending))
	for _, r := range pending {
		out = append(out, NewRequestResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// RemovePending removes every request named by an `id` query parameter.
func (h *Handlers) RemovePending(c *gin.Context) {
	raw := c.QueryArray("id")
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid notification ID format: %q", s)})
			return
		}
		ids = append(ids, id)
	}

	if err := h.service.RemovePendingRequests(c.Request.Context(), ids); err != nil {
		h.writeError(c, err, "failed to remove pending requests")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAuthorization returns the recorded authorization decision.
func (h *Handlers) GetAuthorization(c *gin.Context) {
	settings, err := h.service.AuthorizationSettings(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to read authorization settings")
		return
	}

	c.JSON(http.StatusOK, NewAuthorizationResponse(settings))
}

// RequestAuthorization asks for permission to present with the given options.
func (h *Handlers) RequestAuthorization(c *gin.Context) {
	var req AuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	opts, err := model.ParseOptions(req.Options)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	granted, err := h.service.RequestAuthorization(c.Request.Context(), opts)
	if err != nil {
		h.writeError(c, err, "failed to request authorization")
		return
	}

	c.JSON(http.StatusOK, GrantResponse{Granted: granted})
}

// StreamDeliveries streams fired requests as server-sent "delivered" events
// until the client goes away.
func (h *Handlers) StreamDeliveries(c *gin.Context) {
	ctx := c.Request.Context()
	deliveries, cancel, err := h.service.SubscribeDeliveries(ctx)
	if err != nil {
		h.writeError(c, err, "failed to subscribe to deliveries")
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	h.logger.Debug().Str("remote", c.ClientIP()).Msg("delivery stream opened")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case r, ok := <-deliveries:
			if !ok {
				return false
			}
			c.SSEvent("delivered", NewRequestResponse(r))
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		}
	})
	h.logger.Debug().Str("remote", c.ClientIP()).Msg("delivery stream closed")
}

// writeError maps service errors to HTTP statuses.
func (h *Handlers) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, model.ErrInvalidTrigger):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrDuplicateRecord):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg(msg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid notification ID format"})
		return uuid.Nil, false
	}
	return id, true
}
