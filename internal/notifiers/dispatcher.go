package notifiers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/rs/zerolog"
)

// Dispatcher is a composite notifier that fans a fired request out to every enabled channel.
// It implements the Notifier interface itself.
type Dispatcher struct {
	notifiers map[string]Notifier
	logger    zerolog.Logger
}

// NewDispatcher creates a new Dispatcher and initializes channel-specific notifiers
// based on the application's configuration mode.
func NewDispatcher(cfg *config.Config, logger *zerolog.Logger) (*Dispatcher, error) {
	log := logger.With().Str("component", "dispatcher").Logger()
	log.Info().Str("mode", cfg.Notifiers.Mode).Msg("initializing notifiers")

	notifiersMap := make(map[string]Notifier)

	// If in "production" mode, try to enable the real notifiers.
	if cfg.Notifiers.Mode == "production" {
		if cfg.Notifiers.Email.Host != "" && cfg.Notifiers.Email.To != "" {
			notifiersMap["email"] = NewEmailNotifier(cfg.Notifiers.Email, logger)
			log.Info().Msg("email notifier enabled")
		}
		if cfg.Notifiers.Telegram.BotToken != "" && cfg.Notifiers.Telegram.ChatID != 0 {
			tgNotifier, err := NewTelegramNotifier(cfg.Notifiers.Telegram, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize telegram notifier: %w", err)
			}
			notifiersMap["telegram"] = tgNotifier
			log.Info().Msg("telegram notifier enabled")
		}
	}

	// The LogNotifier is the fallback when nothing else is enabled.
	if len(notifiersMap) == 0 {
		notifiersMap["log"] = NewLogNotifier(logger)
	}

	return &Dispatcher{
		notifiers: notifiersMap,
		logger:    log,
	}, nil
}

// Send implements the Notifier interface. Every channel gets the request;
// the errors of failing channels are joined.
func (d *Dispatcher) Send(ctx context.Context, r *model.Request, opts model.PresentationOptions) error {
	if opts == model.PresentNone {
		d.logger.Debug().Stringer("notification_id", r.ID).Msg("presentation suppressed, nothing to send")
		return nil
	}

	var errs []error
	for name, notifier := range d.notifiers {
		if err := notifier.Send(ctx, r, opts); err != nil {
			d.logger.Error().Err(err).Str("channel", name).Stringer("notification_id", r.ID).Msg("channel failed to present")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
