package dispatcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/errkind"
)

// EmailChannel sends an HTML body with a text fallback over SMTP
// (spec.md §4.9 "HTML body with a text fallback"). A delivery is
// successful iff the SMTP server acknowledges the DATA phase, which
// gomail.Dialer.DialAndSend reports by returning a nil error.
type EmailChannel struct {
	dialer *gomail.Dialer
	from   string
	log    zerolog.Logger
}

func NewEmailChannel(host string, port int, username, password, from string, log zerolog.Logger) *EmailChannel {
	return &EmailChannel{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		log:    log.With().Str("channel", "email").Logger(),
	}
}

func (c *EmailChannel) Name() domain.NotificationChannel { return domain.ChannelEmail }

func (c *EmailChannel) Send(ctx context.Context, prefs domain.UserPreferences, sig domain.TradingSignal) error {
	if prefs.Email == "" {
		return errkind.AsInvariantViolation(fmt.Errorf("email: user %d has no address configured", prefs.UserID))
	}

	subject, html, text, err := renderEmail(sig)
	if err != nil {
		return fmt.Errorf("email: render message: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", prefs.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)

	done := make(chan error, 1)
	go func() { done <- c.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return errkind.AsTransient(fmt.Errorf("email: send: %w", err))
		}
		return nil
	case <-ctx.Done():
		return errkind.AsTransient(fmt.Errorf("email: send: %w", ctx.Err()))
	}
}
