// Package mailer sends contact form notifications over SMTP, protected by a
// circuit breaker so a broken mail provider cannot slow down form handling.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/wneessen/go-mail"

	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
	"github.com/Bhardin04/brianhardin.info/internal/metrics"
)

// sender is the slice of the SMTP client the mailer uses.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Config carries the SMTP settings for the mailer.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Mailer sends notification mails for contact form submissions.
type Mailer struct {
	client  sender
	breaker *gobreaker.CircuitBreaker
	from    string
	to      string
}

// New creates a Mailer with an SMTP client and circuit breaker. The breaker
// opens after three consecutive failures and probes again after a minute.
func New(cfg Config) (*Mailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return newWithSender(client, cfg.From, cfg.To), nil
}

func newWithSender(client sender, from, to string) *Mailer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "smtp",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Mailer circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Mailer{client: client, breaker: breaker, from: from, to: to}
}

// SendContactNotification mails the submission to the site owner.
func (m *Mailer) SendContactNotification(ctx context.Context, name, email, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	if err := msg.ReplyTo(email); err != nil {
		return fmt.Errorf("invalid reply-to address: %w", err)
	}

	msg.Subject("[contact] " + subject)
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf("From: %s <%s>\n\n%s", name, email, body))

	_, err := m.breaker.Execute(func() (any, error) {
		return nil, m.client.DialAndSendWithContext(ctx, msg)
	})
	if err != nil {
		metrics.ContactMailFailures.Inc()
		return apperrors.ExternalError("failed to send contact notification", err)
	}
	return nil
}
