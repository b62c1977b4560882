package notifiers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ilindan-dev/local-notifier/internal/domain/model"
)

// Notifier defines the interface for any presentation channel.
// This allows us to easily swap or add new channels (e.g., SMS, Slack).
type Notifier interface {
	// Send presents the request using the given presentation options.
	Send(ctx context.Context, r *model.Request, opts model.PresentationOptions) error
}

// PresentationDelegate decides how a firing request is presented.
type PresentationDelegate interface {
	WillPresent(ctx context.Context, r *model.Request) model.PresentationOptions
}

// AlertDelegate always asks for an alert with sound.
type AlertDelegate struct{}

// NewAlertDelegate returns the default presentation delegate.
func NewAlertDelegate() *AlertDelegate {
	return &AlertDelegate{}
}

func (AlertDelegate) WillPresent(context.Context, *model.Request) model.PresentationOptions {
	return model.PresentAlert | model.PresentSound
}

// formatText renders the visible text of a request: subtitle and body under the title.
func formatText(r *model.Request) string {
	var b strings.Builder
	if r.Content.Subtitle != "" {
		b.WriteString(r.Content.Subtitle)
		b.WriteString("\n\n")
	}
	b.WriteString(r.Content.Body)
	return b.String()
}

// formatMarkdown renders the request for Markdown-capable channels.
func formatMarkdown(r *model.Request) string {
	return fmt.Sprintf("*%s*\n\n%s", r.Content.Title, formatText(r))
}
