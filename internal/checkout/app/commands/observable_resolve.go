package commands

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fastcopy/printshop/internal/checkout/metrics"
	"github.com/fastcopy/printshop/internal/telemetry"
)

// ResolveCommandHandler is implemented by ResolveHandler and its wrappers.
type ResolveCommandHandler interface {
	Handle(ctx context.Context, cmd ResolvePaymentCommand) (*ResolveResult, error)
}

type ObservableResolveHandler struct {
	handler ResolveCommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableResolveHandler(handler ResolveCommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableResolveHandler {
	return &ObservableResolveHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableResolveHandler) Handle(ctx context.Context, cmd ResolvePaymentCommand) (*ResolveResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ResolvePaymentCommand.Handle")
	defer span.End()

	start := time.Now()

	o.logger.InfoContext(ctx, "resolving payment",
		"gateway_order_id", cmd.GatewayOrderID,
	)

	result, err := o.handler.Handle(ctx, cmd)

	o.metrics.RecordResolveDuration(ctx, time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.metrics.RecordReconciliation(ctx, "error")
		o.logger.ErrorContext(ctx, "failed to resolve payment",
			"error", err,
			"gateway_order_id", cmd.GatewayOrderID,
		)
		return nil, err
	}

	outcome := string(result.Outcome)
	if result.AlreadyResolved {
		outcome = "noop"
	}
	o.metrics.RecordReconciliation(ctx, outcome)

	telemetry.AddSpanAttributes(span,
		attribute.String("batch.gateway_order_id", cmd.GatewayOrderID),
		attribute.String("resolve.outcome", outcome),
		attribute.Int("resolve.orders", len(result.Orders)),
	)

	o.logger.InfoContext(ctx, "payment resolved",
		"gateway_order_id", cmd.GatewayOrderID,
		"outcome", outcome,
		"orders", len(result.Orders),
	)

	telemetry.SetSpanSuccess(span)
	return result, nil
}
