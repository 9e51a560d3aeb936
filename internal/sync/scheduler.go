package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler runs a refresh at startup, then on every tick and whenever a
// request arrives on Signals.
type Scheduler struct {
	Runner   Runner
	Interval time.Duration
	Signals  <-chan struct{}
}

func (s *Scheduler) Run(ctx context.Context) {
	if s.Runner == nil || s.Interval <= 0 {
		return
	}

	// Run immediately at startup.
	s.runOnce(ctx, "initial refresh failed")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, "scheduled refresh failed")
		case <-s.Signals:
			s.runOnce(ctx, "requested refresh failed")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, msg string) {
	err := s.Runner.RunOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrStaleRefresh), errors.Is(err, context.Canceled):
		slog.Debug(msg, "err", err)
	case errors.Is(err, ErrNoData):
		slog.Warn(msg, "err", err)
	default:
		slog.Error(msg, "err", err)
	}
}
