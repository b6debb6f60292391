package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"notes_service/internal/config"
	"notes_service/internal/mailer"
	"notes_service/internal/models"
)

const PurposeOTP = "otp"

type DeliveryStatus int

const (
	StatusSent DeliveryStatus = iota
	// StatusLogged means no transport was configured and the code went to the log.
	StatusLogged
	StatusFailed
)

func (s DeliveryStatus) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusLogged:
		return "logged"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DeliveryResult lets the caller decide whether a failed delivery matters.
type DeliveryResult struct {
	Status DeliveryStatus
	Driver string
	Err    error
}

func (r DeliveryResult) Delivered() bool {
	return r.Status != StatusFailed
}

func sent(driver string) DeliveryResult {
	return DeliveryResult{Status: StatusSent, Driver: driver}
}

func failed(driver string, err error) DeliveryResult {
	return DeliveryResult{Status: StatusFailed, Driver: driver, Err: err}
}

type Notifier interface {
	Send(ctx context.Context, email, code string) DeliveryResult
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

// New picks the delivery driver named in cfg. publisher is only consulted for
// the rabbitmq driver and may be nil otherwise.
func New(cfg *config.Config, log *slog.Logger, publisher Publisher) (Notifier, error) {
	const op = "notifier.New"

	content := NewContent(cfg.OTP.TTL)

	switch cfg.Notifier.Driver {
	case "", config.NotifierLog:
		return NewLog(log), nil
	case config.NotifierSMTP:
		m := &mailer.Mailer{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}
		return NewSMTP(m, content, log), nil
	case config.NotifierSendgrid:
		if cfg.Sendgrid.APIKey == "" || cfg.Sendgrid.From == "" {
			return nil, fmt.Errorf("%s: sendgrid driver needs api_key and from", op)
		}
		return NewSendgrid(cfg.Sendgrid.APIKey, cfg.Sendgrid.FromName, cfg.Sendgrid.From, cfg.Sendgrid.Sandbox, content), nil
	case config.NotifierRabbitMQ:
		if publisher == nil {
			return nil, fmt.Errorf("%s: rabbitmq driver needs a publisher", op)
		}
		return NewQueue(publisher), nil
	default:
		return nil, fmt.Errorf("%s: unknown driver %q", op, cfg.Notifier.Driver)
	}
}
