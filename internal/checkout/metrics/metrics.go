package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	checkoutsStarted metric.Int64Counter
	paymentSessions  metric.Int64Counter
	reconciliations  metric.Int64Counter
	couponRejections metric.Int64Counter
	resolveDuration  metric.Float64Histogram
	gatewayCalls     metric.Int64Counter
	gatewayDuration  metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.checkoutsStarted, err = meter.Int64Counter(
		"checkouts_started_total",
		metric.WithDescription("Checkout batches started, by origin"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkouts_started_total counter: %w", err)
	}

	m.paymentSessions, err = meter.Int64Counter(
		"payment_sessions_total",
		metric.WithDescription("Gateway payment sessions opened"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_sessions_total counter: %w", err)
	}

	m.reconciliations, err = meter.Int64Counter(
		"reconciliations_total",
		metric.WithDescription("Batch reconciliations, by outcome"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create reconciliations_total counter: %w", err)
	}

	m.couponRejections, err = meter.Int64Counter(
		"coupon_rejections_total",
		metric.WithDescription("Coupon validations that failed, by reason"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create coupon_rejections_total counter: %w", err)
	}

	m.resolveDuration, err = meter.Float64Histogram(
		"reconciliation_duration_seconds",
		metric.WithDescription("Duration of batch reconciliation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create reconciliation_duration histogram: %w", err)
	}

	m.gatewayCalls, err = meter.Int64Counter(
		"gateway_requests_total",
		metric.WithDescription("Payment gateway calls, by operation and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gateway_requests_total counter: %w", err)
	}

	m.gatewayDuration, err = meter.Float64Histogram(
		"gateway_request_duration_seconds",
		metric.WithDescription("Duration of payment gateway calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gateway_request_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordCheckoutStarted(ctx context.Context, origin string) {
	m.checkoutsStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("origin", origin),
	))
}

func (m *Metrics) RecordPaymentSession(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.paymentSessions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordReconciliation(ctx context.Context, outcome string) {
	m.reconciliations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordCouponRejection(ctx context.Context, reason string) {
	m.couponRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

func (m *Metrics) RecordResolveDuration(ctx context.Context, durationSeconds float64) {
	m.resolveDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordGatewayCall(ctx context.Context, operation string, durationSeconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.gatewayCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.gatewayDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
