package notifiers

import (
	"context"
	"os"

	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// EmailNotifier presents fired requests as e-mails to a fixed recipient.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     string
	logger zerolog.Logger
}

// NewEmailNotifier creates a new instance of EmailNotifier.
func NewEmailNotifier(cfg config.EmailConfig, logger *zerolog.Logger) *EmailNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &EmailNotifier{
		dialer: d,
		from:   cfg.From,
		to:     cfg.To,
		logger: logger.With().Str("component", "email_notifier").Logger(),
	}
}

// Send implements the Notifier interface for email. An e-mail is an alert;
// without the alert option there is nothing to send.
func (n *EmailNotifier) Send(_ context.Context, r *model.Request, opts model.PresentationOptions) error {
	if !opts.Has(model.PresentAlert) {
		return nil
	}

	m := n.newMessage(r)

	// DialAndSend opens a connection, sends the email, and closes it.
	if err := n.dialer.DialAndSend(m); err != nil {
		n.logger.Error().Err(err).Stringer("notification_id", r.ID).Msg("failed to send email")
		return err
	}

	n.logger.Info().Stringer("notification_id", r.ID).Str("recipient", n.to).Msg("email sent successfully")
	return nil
}

func (n *EmailNotifier) newMessage(r *model.Request) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", r.Content.Title)
	m.SetBody("text/plain", formatText(r))

	for _, a := range r.Content.Attachments {
		if _, err := os.Stat(a.URL); err != nil {
			n.logger.Warn().Err(err).Str("attachment", a.Identifier).Msg("attachment not readable, sending without it")
			continue
		}
		m.Attach(a.URL)
	}
	return m
}
