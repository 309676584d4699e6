// Package notify dispatches order-resolved notifications. Delivery channels
// (email, SMS) hang off an external provider; the LogNotifier stands in until
// one is wired and in tests.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/fastcopy/printshop/internal/checkout/domain"
)

// LogNotifier records notifications in the log instead of sending them.
type LogNotifier struct {
	logger  *slog.Logger
	metrics *Metrics
}

func NewLogNotifier(logger *slog.Logger, metrics *Metrics) *LogNotifier {
	return &LogNotifier{logger: logger, metrics: metrics}
}

func (n *LogNotifier) OrderResolved(ctx context.Context, order domain.Order, succeeded bool) error {
	start := time.Now()

	event := "order_failed"
	if succeeded {
		event = "order_paid"
	}

	n.logger.InfoContext(ctx, "notification::"+event,
		slog.String("order_code", order.Code),
		slog.String("user_id", order.UserID),
		slog.String("amount", order.NetAmount().String()),
		slog.Bool("incomplete", order.Incomplete),
	)

	if n.metrics != nil {
		n.metrics.RecordDispatch(ctx, event, time.Since(start).Seconds(), true)
	}
	return nil
}
