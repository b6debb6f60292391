package notifier

import (
	"context"
	"fmt"
	"log/slog"

	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/mailer"
	"notes_service/internal/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Log writes codes to the logger instead of delivering them.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (n *Log) Send(_ context.Context, email, code string) DeliveryResult {
	n.log.Warn("no email transport configured, logging OTP instead",
		slog.String("email", email),
		slog.String("otp", code),
	)

	return DeliveryResult{Status: StatusLogged, Driver: "log"}
}

// SMTP delivers through gomail. Without complete SMTP settings it degrades to
// logging the code.
type SMTP struct {
	mailer   *mailer.Mailer
	content  Content
	fallback *Log
}

func NewSMTP(m *mailer.Mailer, content Content, log *slog.Logger) *SMTP {
	return &SMTP{
		mailer:   m,
		content:  content,
		fallback: NewLog(log),
	}
}

func (n *SMTP) Send(ctx context.Context, email, code string) DeliveryResult {
	if !n.mailer.Configured() {
		return n.fallback.Send(ctx, email, code)
	}

	err := n.mailer.Send(ctx, email, n.content.Subject, n.content.Text(code), n.content.HTML(code))
	if err != nil {
		return failed("smtp", err)
	}

	return sent("smtp")
}

type Sendgrid struct {
	client  *sendgrid.Client
	from    *mail.Email
	sandbox bool
	content Content
}

func NewSendgrid(apiKey, fromName, fromEmail string, sandbox bool, content Content) *Sendgrid {
	return &Sendgrid{
		client:  sendgrid.NewSendClient(apiKey),
		from:    mail.NewEmail(fromName, fromEmail),
		sandbox: sandbox,
		content: content,
	}
}

func (n *Sendgrid) Send(ctx context.Context, email, code string) DeliveryResult {
	to := mail.NewEmail("", email)

	msg := mail.NewSingleEmail(n.from, n.content.Subject, to, n.content.Text(code), n.content.HTML(code))
	if n.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := n.client.SendWithContext(ctx, msg)
	if err != nil {
		return failed("sendgrid", err)
	}

	if resp.StatusCode >= 400 {
		return failed("sendgrid", fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body))
	}

	return sent("sendgrid")
}

// Queue hands the code to the mail sender worker over RabbitMQ.
type Queue struct {
	publisher Publisher
}

func NewQueue(publisher Publisher) *Queue {
	return &Queue{publisher: publisher}
}

func (n *Queue) Send(ctx context.Context, email, code string) DeliveryResult {
	msg := models.Message{
		Email:   email,
		Code:    code,
		Purpose: PurposeOTP,
	}

	if err := n.publisher.SendMessage(ctx, msg); err != nil {
		return failed("rabbitmq", err)
	}

	return sent("rabbitmq")
}

// LogResult records the outcome of a delivery attempt.
func LogResult(log *slog.Logger, res DeliveryResult) {
	switch res.Status {
	case StatusFailed:
		log.Error("failed to deliver OTP", slog.String("driver", res.Driver), sl.Err(res.Err))
	default:
		log.Info("OTP dispatched", slog.String("driver", res.Driver), slog.String("status", res.Status.String()))
	}
}
