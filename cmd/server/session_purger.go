package main

import (
	"context"
	"log/slog"
	"time"
)

type sessionPurger interface {
	PurgeExpired() error
}

// newTicker is swapped out in tests to drive the worker deterministically.
type purgeTicker interface {
	C() <-chan time.Time
	Stop()
}

type tickerFactory func(time.Duration) purgeTicker

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.ticker.C }
func (t timeTicker) Stop()               { t.ticker.Stop() }

// runSessionPurgeWorker deletes expired session rows on a fixed interval
// until the context is cancelled. Expired tokens are already rejected at
// validation time; the worker only keeps the table from growing without
// bound.
func runSessionPurgeWorker(ctx context.Context, logger *slog.Logger, sessions sessionPurger, interval time.Duration) error {
	return runSessionPurgeWorkerWithTicker(ctx, logger, sessions, interval, func(d time.Duration) purgeTicker {
		return timeTicker{ticker: time.NewTicker(d)}
	})
}

func runSessionPurgeWorkerWithTicker(
	ctx context.Context,
	logger *slog.Logger,
	sessions sessionPurger,
	interval time.Duration,
	newTicker tickerFactory,
) error {
	if sessions == nil || interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := newTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if err := sessions.PurgeExpired(); err != nil && logger != nil {
				logger.Error("failed to purge expired sessions", "error", err)
			}
		}
	}
}
