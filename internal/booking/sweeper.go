package booking

import (
	"context"
	"log/slog"
	"time"
)

const defaultSweepInterval = 30 * time.Second

// LeaderLock lets one instance skip a tick another instance is already
// running. It is an optimisation only: sweeps are safe to run concurrently.
type LeaderLock interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)
}

type Sweeper struct {
	service  *Service
	leader   LeaderLock
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(service *Service, leader LeaderLock, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &Sweeper{
		service:  service,
		leader:   leader,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on every tick until ctx is done.
func (sw *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info("sweeper started", "interval", sw.interval)

	for {
		select {
		case <-ticker.C:
			sw.Tick(ctx)
		case <-ctx.Done():
			sw.logger.Info("sweeper stopped")
			return ctx.Err()
		}
	}
}

type TickResult struct {
	Skipped         bool
	ShowsSwept      int64
	BookingsExpired int
}

func (sw *Sweeper) Tick(ctx context.Context) TickResult {
	if sw.leader != nil {
		acquired, err := sw.leader.TryAcquire(ctx, sw.interval)
		if err != nil {
			sw.logger.Warn("sweeper leader check failed, sweeping anyway", "error", err)
		} else if !acquired {
			sw.logger.Debug("sweep skipped, another instance holds the lead")
			return TickResult{Skipped: true}
		}
	}

	var res TickResult

	swept, err := sw.service.SweepExpiredLocks(ctx)
	if err != nil {
		sw.logger.Error("lock sweep failed", "error", err)
	}
	res.ShowsSwept = swept

	expired, err := sw.service.ExpireUnpaidBookings(ctx)
	if err != nil {
		sw.logger.Error("payment timeout sweep failed", "error", err)
	}
	res.BookingsExpired = expired

	return res
}
