package notifiers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/rs/zerolog"
)

// TelegramNotifier presents fired requests in a fixed Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier creates a new instance of TelegramNotifier.
func NewTelegramNotifier(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot api: %w", err)
	}
	return &TelegramNotifier{
		bot:    bot,
		chatID: cfg.ChatID,
		logger: logger.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// Send implements the Notifier interface for Telegram.
// Requests with an image attachment go out as a photo with a caption.
// Without the sound option the message is delivered silently.
func (n *TelegramNotifier) Send(_ context.Context, r *model.Request, opts model.PresentationOptions) error {
	if !opts.Has(model.PresentAlert) {
		return nil
	}

	var msg tgbotapi.Chattable
	if r.HasImageAttachment() {
		photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FilePath(r.Content.Attachments[0].URL))
		photo.Caption = formatMarkdown(r)
		photo.ParseMode = tgbotapi.ModeMarkdown
		photo.DisableNotification = !opts.Has(model.PresentSound)
		msg = photo
	} else {
		text := tgbotapi.NewMessage(n.chatID, formatMarkdown(r))
		text.ParseMode = tgbotapi.ModeMarkdown
		text.DisableNotification = !opts.Has(model.PresentSound)
		msg = text
	}

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Stringer("notification_id", r.ID).Msg("failed to send telegram message")
		return err
	}

	n.logger.Info().Stringer("notification_id", r.ID).Int64("chat_id", n.chatID).Msg("telegram message sent successfully")
	return nil
}
