package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/nomadpay/authcore/pkg/httpx"
	"github.com/nomadpay/authcore/pkg/metricsx"
)

// HousekeepingService periodically prunes idle rate limiter keys and
// refreshes the usable refresh token gauge. Ledger and audit rows are kept.
type HousekeepingService struct {
	Ledger   *RefreshLedger
	Sweepers []httpx.Sweeper
	Metrics  *metricsx.Metrics
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 5 minutes.
func NewHousekeepingService(
	ledger *RefreshLedger,
	metrics *metricsx.Metrics,
	logger *slog.Logger,
	interval time.Duration,
	sweepers ...httpx.Sweeper,
) *HousekeepingService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &HousekeepingService{
		Ledger:   ledger,
		Sweepers: sweepers,
		Metrics:  metrics,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress pass.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single pass. Each step is independent.
func (s *HousekeepingService) RunOnce(ctx context.Context) {
	now := s.Ledger.Now()

	swept := 0
	for _, sw := range s.Sweepers {
		swept += sw.Sweep(now)
	}
	s.Metrics.LimiterKeysSwept(swept)

	usable, err := s.Ledger.CountUsable(ctx)
	if err != nil {
		s.Logger.Error("failed to count usable refresh tokens", "error", err)
	} else {
		s.Metrics.SetUsableRefreshTokens(usable)
	}

	s.Logger.Debug("housekeeping pass completed",
		"limiter_keys_swept", swept,
		"usable_refresh_tokens", usable,
	)
}
