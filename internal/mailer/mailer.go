package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether enough SMTP settings are present to dial.
func (m *Mailer) Configured() bool {
	return m.Host != "" && m.Port != 0 && m.Username != "" && m.Password != ""
}

func (m *Mailer) from() string {
	if m.From != "" {
		return m.From
	}
	return m.Username
}

// Send delivers one message. gomail has no context support, so the dial runs
// in a goroutine and Send returns early if ctx is done.
func (m *Mailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	const op = "mailer.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from())
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	if htmlBody != "" {
		msg.AddAlternative("text/html", htmlBody)
	}

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)

	errCh := make(chan error, 1)
	go func() {
		errCh <- dialer.DialAndSend(msg)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}
