package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/fastcopy/printshop/internal/checkout/ports"
)

// Sweeper periodically re-resolves batches whose orders are still Pending
// long after checkout. A batch whose gateway callback never arrived would
// otherwise stay Pending forever; the sweep polls the gateway for a verdict
// and settles it through the same idempotent resolve path as a callback.
type Sweeper struct {
	service  *Service
	orders   ports.OrderRepository
	interval time.Duration
	minAge   time.Duration
	batch    int
	logger   *slog.Logger
}

// NewSweeper builds a sweeper. A non-positive interval disables it.
func NewSweeper(service *Service, orders ports.OrderRepository, interval, minAge time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		orders:   orders,
		interval: interval,
		minAge:   minAge,
		batch:    50,
		logger:   logger,
	}
}

// Run blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("reconciliation sweep disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reconciliation sweep started", "interval", s.interval, "min_age", s.minAge)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.minAge)
	ids, err := s.orders.ListStalePendingGatewayIDs(ctx, cutoff, s.batch)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep listing failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	s.logger.InfoContext(ctx, "sweeping stale pending batches", "count", len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.service.ResolvePayment(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "sweep resolve failed", "gateway_order_id", id, "error", err)
		}
	}
}
