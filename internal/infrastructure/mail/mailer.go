package mail

import (
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"connectify-server/internal/config"
)

// Mailer sends transactional emails over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	log    zerolog.Logger
}

// NewMailer wires a Mailer from config.
func NewMailer(cfg *config.Config, log zerolog.Logger) *Mailer {
	from := cfg.MailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   from,
		log:    log.With().Str("component", "mailer").Logger(),
	}
}

// SendPasswordReset emails a single-use reset link.
func (m *Mailer) SendPasswordReset(to, resetURL string) error {
	if m.from == "" {
		return fmt.Errorf("mail sender is not configured")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/html", fmt.Sprintf(`
		<p>We received a request to reset your password.</p>
		<p><a href="%s">Click here to choose a new password.</a></p>
		<p>The link expires in one hour. If you did not ask for this, you can ignore this email.</p>
	`, resetURL))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}
	m.log.Info().Str("to", to).Msg("password reset email sent")
	return nil
}
