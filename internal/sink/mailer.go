package sink

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/config"
)

// Mailer sends the run summary with the spreadsheet attached. It runs only
// after both file sinks are written, and a delivery failure never unwinds
// already written data.
type Mailer struct {
	cfg config.MailConfig
	log *zap.Logger
}

// NewMailer builds the notifier. Returns nil when no host is configured so
// callers can treat the notifier as absent.
func NewMailer(cfg config.MailConfig, logger *zap.Logger) *Mailer {
	if cfg.Host == "" {
		return nil
	}
	return &Mailer{
		cfg: cfg,
		log: logger.Named("mailer"),
	}
}

// Notify delivers one summary message with the given attachments.
func (m *Mailer) Notify(ctx context.Context, subject, body string, attachments []string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", m.cfg.From, err)
	}
	if err := msg.To(m.cfg.To...); err != nil {
		return fmt.Errorf("invalid recipient list: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	for _, path := range attachments {
		msg.AttachFile(path)
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to build smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send summary mail: %w", err)
	}

	m.log.Info("Summary mail sent.", zap.Strings("to", m.cfg.To), zap.Int("attachments", len(attachments)))
	return nil
}
