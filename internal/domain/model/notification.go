package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// MinInterval is the storage resolution of trigger intervals.
	MinInterval = time.Millisecond
	// MinRepeatInterval is the shortest interval accepted for a repeating trigger.
	MinRepeatInterval = time.Minute
)

// ErrInvalidTrigger is returned when a trigger would not fire in the future.
var ErrInvalidTrigger = errors.New("invalid trigger")

// Status represents the current state of a notification request.
type Status string

const (
	StatusScheduled Status = "scheduled" // The request is pending and will fire at FireAt.
	StatusDelivered Status = "delivered" // The request fired and was handed to the presenters.
	StatusFailed    Status = "failed"    // Presentation failed after all retry attempts.
	StatusCancelled Status = "cancelled" // The request was removed from the pending set.
)

// Attachment references a media file shown together with a notification.
type Attachment struct {
	Identifier string
	URL        string // Local file path of the resource.
	Type       string // MIME type detected from the file content.
}

// Content is what the user sees when a request fires.
type Content struct {
	Title       string
	Subtitle    string
	Body        string
	Sound       string
	Attachments []Attachment
	UserInfo    map[string]string
}

// Trigger describes when a request fires, relative to its submission.
type Trigger struct {
	Interval time.Duration
	Repeats  bool
}

// Validate checks that the trigger fires strictly in the future.
func (t Trigger) Validate() error {
	if t.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidTrigger, t.Interval)
	}
	if t.Interval < MinInterval {
		return fmt.Errorf("%w: interval must be at least %s, got %s", ErrInvalidTrigger, MinInterval, t.Interval)
	}
	if t.Repeats && t.Interval < MinRepeatInterval {
		return fmt.Errorf("%w: repeating interval must be at least %s", ErrInvalidTrigger, MinRepeatInterval)
	}
	return nil
}

// Request is the core business entity of the application: a uniquely
// identified unit of content plus the trigger that fires it.
// It is technology-agnostic and does not contain any DB or JSON tags.
type Request struct {
	ID      uuid.UUID
	Content Content
	Trigger Trigger

	// Bookkeeping owned by the notification center.
	Status      Status
	Attempts    int
	FireAt      time.Time
	DeliveredAt *time.Time // Pointer to allow null value.
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRequest is a factory function for a request that fires once after delay.
func NewRequest(content Content, delay time.Duration) *Request {
	return &Request{
		ID:      uuid.New(),
		Content: content,
		Trigger: Trigger{Interval: delay},
	}
}

// IsPending reports whether the request is still part of the pending set.
func (r *Request) IsPending() bool {
	return r.Status == StatusScheduled
}

// HasImageAttachment reports whether the first attachment is an image.
func (r *Request) HasImageAttachment() bool {
	if len(r.Content.Attachments) == 0 {
		return false
	}
	switch r.Content.Attachments[0].Type {
	case "image/png", "image/jpeg", "image/gif":
		return true
	}
	return false
}
