package notifiers

import (
	"context"

	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/rs/zerolog"
)

// LogNotifier is a mock notifier that implements the Notifier interface.
// It simply logs the request details to the console instead of presenting them
// through a real channel. This is extremely useful for development and testing.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger.With().Str("component", "log_notifier").Logger(),
	}
}

// Send implements the Notifier interface.
func (n *LogNotifier) Send(_ context.Context, r *model.Request, opts model.PresentationOptions) error {
	n.logger.Info().
		Stringer("notification_id", r.ID).
		Str("title", r.Content.Title).
		Str("subtitle", r.Content.Subtitle).
		Str("sound", r.Content.Sound).
		Int("attachments", len(r.Content.Attachments)).
		Stringer("presentation", opts).
		Msg(">>> MOCK PRESENT: Notification fired")

	return nil
}
