package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
)

// AttachmentDTO describes a media file shown with a notification.
type AttachmentDTO struct {
	Identifier string `json:"identifier" binding:"required"`
	URL        string `json:"url" binding:"required"`
	Type       string `json:"type"`
}

// CreateRequest defines the structure for a new notification request.
// It uses `json` tags for unmarshalling and `binding` for validation with Gin.
type CreateRequest struct {
	ID              *uuid.UUID        `json:"id,omitempty"`
	Title           string            `json:"title"`
	Subtitle        string            `json:"subtitle"`
	Body            string            `json:"body"`
	Sound           string            `json:"sound"`
	Attachments     []AttachmentDTO   `json:"attachments" binding:"omitempty,dive"`
	UserInfo        map[string]string `json:"user_info"`
	IntervalSeconds float64           `json:"interval_seconds"`
	Repeats         bool              `json:"repeats"`
}

// RequestResponse defines the structure for a notification request response.
type RequestResponse struct {
	ID              uuid.UUID         `json:"id"`
	Title           string            `json:"title"`
	Subtitle        string            `json:"subtitle"`
	Body            string            `json:"body"`
	Sound           string            `json:"sound"`
	Attachments     []AttachmentDTO   `json:"attachments"`
	UserInfo        map[string]string `json:"user_info,omitempty"`
	IntervalSeconds float64           `json:"interval_seconds"`
	Repeats         bool              `json:"repeats"`
	Status          string            `json:"status"`
	Attempts        int               `json:"attempts"`
	FireAt          time.Time         `json:"fire_at"`
	DeliveredAt     *time.Time        `json:"delivered_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// AuthorizationRequest asks for permission to present with the listed options.
type AuthorizationRequest struct {
	Options []string `json:"options" binding:"required"`
}

// AuthorizationResponse is the recorded authorization decision.
type AuthorizationResponse struct {
	Status    string     `json:"status"`
	Options   []string   `json:"options"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// GrantResponse reports whether authorization was granted.
type GrantResponse struct {
	Granted bool `json:"granted"`
}

// ErrorResponse defines a standard structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// === Mapper Functions ===

// NewCreateRequest maps a domain request to its wire form.
func NewCreateRequest(r *model.Request) CreateRequest {
	req := CreateRequest{
		Title:           r.Content.Title,
		Subtitle:        r.Content.Subtitle,
		Body:            r.Content.Body,
		Sound:           r.Content.Sound,
		Attachments:     toAttachmentDTOs(r.Content.Attachments),
		UserInfo:        r.Content.UserInfo,
		IntervalSeconds: r.Trigger.Interval.Seconds(),
		Repeats:         r.Trigger.Repeats,
	}
	if r.ID != uuid.Nil {
		id := r.ID
		req.ID = &id
	}
	return req
}

// ToModel maps the wire form back to a domain request.
func (req CreateRequest) ToModel() *model.Request {
	r := &model.Request{
		Content: model.Content{
			Title:       req.Title,
			Subtitle:    req.Subtitle,
			Body:        req.Body,
			Sound:       req.Sound,
			Attachments: toAttachments(req.Attachments),
			UserInfo:    req.UserInfo,
		},
		Trigger: model.Trigger{
			Interval: secondsToDuration(req.IntervalSeconds),
			Repeats:  req.Repeats,
		},
	}
	if req.ID != nil {
		r.ID = *req.ID
	}
	return r
}

// NewRequestResponse maps the domain model to the response DTO.
func NewRequestResponse(r *model.Request) RequestResponse {
	return RequestResponse{
		ID:              r.ID,
		Title:           r.Content.Title,
		Subtitle:        r.Content.Subtitle,
		Body:            r.Content.Body,
		Sound:           r.Content.Sound,
		Attachments:     toAttachmentDTOs(r.Content.Attachments),
		UserInfo:        r.Content.UserInfo,
		IntervalSeconds: r.Trigger.Interval.Seconds(),
		Repeats:         r.Trigger.Repeats,
		Status:          string(r.Status),
		Attempts:        r.Attempts,
		FireAt:          r.FireAt,
		DeliveredAt:     r.DeliveredAt,
		CreatedAt:       r.CreatedAt,
	}
}

// ToModel maps a response back to the domain model.
func (resp RequestResponse) ToModel() *model.Request {
	return &model.Request{
		ID: resp.ID,
		Content: model.Content{
			Title:       resp.Title,
			Subtitle:    resp.Subtitle,
			Body:        resp.Body,
			Sound:       resp.Sound,
			Attachments: toAttachments(resp.Attachments),
			UserInfo:    resp.UserInfo,
		},
		Trigger: model.Trigger{
			Interval: secondsToDuration(resp.IntervalSeconds),
			Repeats:  resp.Repeats,
		},
		Status:      model.Status(resp.Status),
		Attempts:    resp.Attempts,
		FireAt:      resp.FireAt,
		DeliveredAt: resp.DeliveredAt,
		CreatedAt:   resp.CreatedAt,
	}
}

// NewAuthorizationResponse maps the recorded decision to its wire form.
func NewAuthorizationResponse(s *model.AuthorizationSettings) AuthorizationResponse {
	resp := AuthorizationResponse{
		Status:  string(s.Status),
		Options: s.Options.Names(),
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

// ToModel maps the wire form back to authorization settings.
func (resp AuthorizationResponse) ToModel() (*model.AuthorizationSettings, error) {
	opts, err := model.ParseOptions(resp.Options)
	if err != nil {
		return nil, err
	}
	s := &model.AuthorizationSettings{
		Status:  model.AuthorizationStatus(resp.Status),
		Options: opts,
	}
	if resp.UpdatedAt != nil {
		s.UpdatedAt = *resp.UpdatedAt
	}
	return s, nil
}

func toAttachmentDTOs(in []model.Attachment) []AttachmentDTO {
	out := make([]AttachmentDTO, 0, len(in))
	for _, a := range in {
		out = append(out, AttachmentDTO{Identifier: a.Identifier, URL: a.URL, Type: a.Type})
	}
	return out
}

func toAttachments(in []AttachmentDTO) []model.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.Attachment, 0, len(in))
	for _, a := range in {
		out = append(out, model.Attachment{Identifier: a.Identifier, URL: a.URL, Type: a.Type})
	}
	return out
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
