// Package client talks to the notification center over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/config"
	deliveryHTTP "github.com/ilindan-dev/local-notifier/internal/delivery/http"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
	"github.com/rs/zerolog"
)

const apiPrefix = "/api/v1"

// APIError is a non-2xx answer of the center.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("center answered %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps statuses back to the domain sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return repo.ErrNotFound
	case http.StatusConflict:
		return repo.ErrDuplicateRecord
	case http.StatusBadRequest:
		if strings.Contains(e.Message, model.ErrInvalidTrigger.Error()) {
			return model.ErrInvalidTrigger
		}
	}
	return nil
}

// Client is a thin HTTP client for the notification center API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no timeout; event streams stay open until cancelled.
	streamClient *http.Client
	logger       zerolog.Logger
}

// NewClient creates a client for the center at cfg.Client.BaseURL.
func NewClient(cfg *config.Config, logger *zerolog.Logger) *Client {
	timeout := cfg.Client.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.Client.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
		logger:       logger.With().Str("component", "center_client").Logger(),
	}
}

// Add submits a request to the center.
func (c *Client) Add(ctx context.Context, r *model.Request) (*model.Request, error) {
	var resp deliveryHTTP.RequestResponse
	if err := c.do(ctx, http.MethodPost, "/notifications", deliveryHTTP.NewCreateRequest(r), &resp); err != nil {
		return nil, err
	}
	return resp.ToModel(), nil
}

// PendingRequests returns the pending set.
func (c *Client) PendingRequests(ctx context.Context) ([]*model.Request, error) {
	var resp []deliveryHTTP.RequestResponse
	if err := c.do(ctx, http.MethodGet, "/pending", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]*model.Request, 0, len(resp))
	for _, r := range resp {
		out = append(out, r.ToModel())
	}
	return out, nil
}

// RemovePendingRequests removes the given requests from the pending set.
func (c *Client) RemovePendingRequests(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	q := url.Values{}
	for _, id := range ids {
		q.Add("id", id.String())
	}
	return c.do(ctx, http.MethodDelete, "/pending?"+q.Encode(), nil, nil)
}

// AuthorizationSettings returns the recorded authorization decision.
func (c *Client) AuthorizationSettings(ctx context.Context) (*model.AuthorizationSettings, error) {
	var resp deliveryHTTP.AuthorizationResponse
	if err := c.do(ctx, http.MethodGet, "/authorization", nil, &resp); err != nil {
		return nil, err
	}
	return resp.ToModel()
}

// RequestAuthorization asks for permission to present with opts.
func (c *Client) RequestAuthorization(ctx context.Context, opts model.AuthorizationOptions) (bool, error) {
	var resp deliveryHTTP.GrantResponse
	body := deliveryHTTP.AuthorizationRequest{Options: opts.Names()}
	if err := c.do(ctx, http.MethodPost, "/authorization", body, &resp); err != nil {
		return false, err
	}
	return resp.Granted, nil
}

// SubscribeDeliveries streams fired requests until cancel is called or the
// stream ends. The channel is closed in both cases.
func (c *Client) SubscribeDeliveries(ctx context.Context) (<-chan *model.Request, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+"/events", nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("opening event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := readAPIError(resp)
		resp.Body.Close()
		cancel()
		return nil, nil, apiErr
	}

	out := make(chan *model.Request, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		err := readEvents(resp.Body, func(e event) bool {
			if e.name != "delivered" {
				return true
			}
			var r deliveryHTTP.RequestResponse
			if err := json.Unmarshal([]byte(e.data), &r); err != nil {
				c.logger.Warn().Err(err).Msg("skipping malformed delivery event")
				return true
			}
			select {
			case out <- r.ToModel():
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			c.logger.Warn().Err(err).Msg("delivery stream ended")
		}
	}()

	return out, cancel, nil
}

// do builds the request, sends it and decodes the JSON answer into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := readAPIError(resp)
		c.logger.Debug().Err(apiErr).Str("method", method).Str("path", path).Msg("request rejected")
		return apiErr
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	var body deliveryHTTP.ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}
