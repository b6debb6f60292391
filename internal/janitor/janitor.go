package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sl "notes_service/internal/lib/logger/sl"

	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "@every 5m"

type CodeCleaner interface {
	ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error)
}

// Janitor periodically clears pending codes that expired without being used.
type Janitor struct {
	log     *slog.Logger
	cleaner CodeCleaner
	cron    *cron.Cron
	timeout time.Duration
	now     func() time.Time
}

func New(log *slog.Logger, cleaner CodeCleaner, schedule string) (*Janitor, error) {
	const op = "janitor.New"

	if schedule == "" {
		schedule = DefaultSchedule
	}

	j := &Janitor{
		log:     log.With(slog.String("op", op)),
		cleaner: cleaner,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		timeout: 30 * time.Second,
		now:     time.Now,
	}

	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return j, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts scheduling and waits for a running sweep until ctx is done.
func (j *Janitor) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Sweep clears expired codes once.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	const op = "janitor.Sweep"

	n, err := j.cleaner.ClearExpiredCodes(ctx, j.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.Sweep(ctx)
	if err != nil {
		j.log.Error("scheduled expired-code cleanup failed", sl.Err(err))
		return
	}

	if n > 0 {
		j.log.Info("cleared expired codes", slog.Int64("count", n))
	}
}
