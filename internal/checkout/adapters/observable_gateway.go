package adapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fastcopy/printshop/internal/checkout/metrics"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/telemetry"
)

// ObservableGateway wraps a payment gateway with tracing and metrics.
type ObservableGateway struct {
	gateway ports.PaymentGateway
	metrics *metrics.Metrics
}

func NewObservableGateway(gateway ports.PaymentGateway, metrics *metrics.Metrics) *ObservableGateway {
	return &ObservableGateway{
		gateway: gateway,
		metrics: metrics,
	}
}

func (g *ObservableGateway) CreateSession(ctx context.Context, input ports.CreateSessionInput) (ports.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentGateway.CreateSession")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("gateway.order_id", input.GatewayOrderID),
		attribute.String("gateway.currency", input.Currency),
	)

	start := time.Now()
	session, err := g.gateway.CreateSession(ctx, input)
	duration := time.Since(start).Seconds()

	g.metrics.RecordGatewayCall(ctx, "create_session", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return ports.Session{}, err
	}

	telemetry.SetSpanSuccess(span)
	return session, nil
}

func (g *ObservableGateway) PollStatus(ctx context.Context, gatewayOrderID string) (ports.Verdict, error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentGateway.PollStatus")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("gateway.order_id", gatewayOrderID),
	)

	start := time.Now()
	verdict, err := g.gateway.PollStatus(ctx, gatewayOrderID)
	duration := time.Since(start).Seconds()

	g.metrics.RecordGatewayCall(ctx, "poll_status", duration, err == nil)

	telemetry.AddSpanAttributes(span,
		attribute.String("gateway.verdict", string(verdict)),
	)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return verdict, err
	}

	telemetry.SetSpanSuccess(span)
	return verdict, nil
}
