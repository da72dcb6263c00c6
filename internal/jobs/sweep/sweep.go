package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job freezes governance sessions that sat idle past their deadline.
// Expiry is pull-based: nothing times out between runs, which keeps the
// session registry free of per-session timers.
type Job struct {
	sessions sessionSweeper
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

type sessionSweeper interface {
	Sweep(now time.Time) int
	Len() int
}

func New(sessions sessionSweeper, interval time.Duration, logger *zap.Logger) *Job {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		sessions: sessions,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Run performs a single sweep pass.
func (j *Job) Run(ctx context.Context) error {
	if j.sessions == nil {
		return nil
	}

	frozen := j.sessions.Sweep(j.now())
	if frozen > 0 {
		j.logger.Info("governance sessions timed out",
			zap.Int("frozen", frozen),
			zap.Int("registered", j.sessions.Len()))
	}

	_ = ctx
	return nil
}

// Start runs sweep passes on the configured interval until the context
// is cancelled.
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Warn("session sweep failed", zap.Error(err))
			}
		}
	}
}
