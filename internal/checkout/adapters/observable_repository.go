package adapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/database"
	"github.com/fastcopy/printshop/internal/telemetry"
)

// ObservableOrderRepository wraps an order repository with tracing and query
// metrics. Only the operations on the reconciliation path carry spans; the
// simple reads record durations alone.
type ObservableOrderRepository struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func NewObservableOrderRepository(repo ports.OrderRepository, metrics *database.Metrics) *ObservableOrderRepository {
	return &ObservableOrderRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableOrderRepository) CreateDraft(ctx context.Context, order domain.Order) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.CreateDraft")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.batch_token", order.BatchToken),
		attribute.String("operation", "create_draft"),
	)

	start := time.Now()
	id, err := r.repo.CreateDraft(ctx, order)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "create_order_draft", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return 0, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int64("order.id", id))
	telemetry.SetSpanSuccess(span)
	return id, nil
}

func (r *ObservableOrderRepository) AssignCode(ctx context.Context, id int64) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.AssignCode")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", id),
		attribute.String("operation", "assign_code"),
	)

	start := time.Now()
	code, err := r.repo.AssignCode(ctx, id)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "assign_order_code", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return "", err
	}

	telemetry.SetSpanSuccess(span)
	return code, nil
}

func (r *ObservableOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	start := time.Now()
	order, err := r.repo.GetByID(ctx, id)
	r.metrics.RecordQuery(ctx, "get_order_by_id", time.Since(start).Seconds())
	return order, err
}

func (r *ObservableOrderRepository) GetByCode(ctx context.Context, code string) (*domain.Order, error) {
	start := time.Now()
	order, err := r.repo.GetByCode(ctx, code)
	r.metrics.RecordQuery(ctx, "get_order_by_code", time.Since(start).Seconds())
	return order, err
}

func (r *ObservableOrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	start := time.Now()
	orders, err := r.repo.ListByUser(ctx, userID)
	r.metrics.RecordQuery(ctx, "list_orders_by_user", time.Since(start).Seconds())
	return orders, err
}

func (r *ObservableOrderRepository) ListByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.ListByGatewayOrderID")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("gateway.order_id", gatewayOrderID),
		attribute.String("operation", "list_by_gateway_order_id"),
	)

	start := time.Now()
	orders, err := r.repo.ListByGatewayOrderID(ctx, gatewayOrderID)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "list_orders_by_gateway_id", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(orders)))
	telemetry.SetSpanSuccess(span)
	return orders, nil
}

func (r *ObservableOrderRepository) SetPaymentOutcome(ctx context.Context, id int64, outcome ports.PaymentOutcome) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.SetPaymentOutcome")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", id),
		attribute.String("order.payment_status", string(outcome.Payment)),
		attribute.String("operation", "set_payment_outcome"),
	)

	start := time.Now()
	err := r.repo.SetPaymentOutcome(ctx, id, outcome)
	duration := time.Since(start).Seconds()

	r.metrics.RecordQuery(ctx, "set_payment_outcome", duration)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (r *ObservableOrderRepository) ListStalePendingGatewayIDs(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	start := time.Now()
	ids, err := r.repo.ListStalePendingGatewayIDs(ctx, olderThan, limit)
	r.metrics.RecordQuery(ctx, "list_stale_pending_gateway_ids", time.Since(start).Seconds())
	return ids, err
}
