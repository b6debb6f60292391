package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	sl "notes_service/internal/lib/logger/sl"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

type Counter interface {
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Limiter caps how many one-time codes may be issued per email address.
type Limiter struct {
	log     *slog.Logger
	counter Counter
	limit   int
	window  time.Duration
}

// New returns a limiter over counter. A nil counter disables limiting.
func New(log *slog.Logger, counter Counter, limit int, window time.Duration) *Limiter {
	return &Limiter{
		log:     log,
		counter: counter,
		limit:   limit,
		window:  window,
	}
}

// CheckCodeIssuance returns ErrRateLimitExceeded once email has used up its
// quota for the current window. Counter failures are logged and let through.
func (l *Limiter) CheckCodeIssuance(ctx context.Context, email string) error {
	const op = "ratelimit.CheckCodeIssuance"

	if l == nil || l.counter == nil || l.limit <= 0 {
		return nil
	}

	key := "otp:email:" + strings.ToLower(email)

	allowed, err := l.counter.IncrementAndCheck(ctx, key, l.limit, l.window)
	if err != nil {
		l.log.Warn("rate limit counter unavailable", slog.String("op", op), sl.Err(err))
		return nil
	}

	if !allowed {
		l.log.Warn("code issuance rate limit exceeded", slog.String("op", op), slog.String("key", key))
		return ErrRateLimitExceeded
	}

	return nil
}
