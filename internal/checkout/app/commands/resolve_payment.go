package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
)

// ResolvePaymentCommand settles a batch against the gateway's verdict.
type ResolvePaymentCommand struct {
	GatewayOrderID string
}

func (c ResolvePaymentCommand) Validate() error {
	if c.GatewayOrderID == "" {
		return errors.New("gateway_order_id is required")
	}
	return nil
}

// ResolveResult reports what the resolution did. AlreadyResolved is set when
// the batch had no pending orders left: duplicate callbacks land here and
// must produce no side effects.
type ResolveResult struct {
	Outcome         domain.PaymentStatus `json:"outcome"`
	Orders          []domain.Order       `json:"orders"`
	AlreadyResolved bool                 `json:"already_resolved"`
}

// ResolveHandler is the reconciliation state machine. All order and staging
// mutations for one batch commit as a single transaction; the gateway poll
// happens outside it.
type ResolveHandler struct {
	orders   ports.OrderRepository
	staging  ports.StagingStore
	batches  ports.BatchRepository
	coupons  ports.CouponRepository
	gateway  ports.PaymentGateway
	files    ports.FileStore
	notifier ports.Notifier
	tx       ports.Transactor
	logger   *slog.Logger
}

func NewResolveHandler(
	orders ports.OrderRepository,
	staging ports.StagingStore,
	batches ports.BatchRepository,
	coupons ports.CouponRepository,
	gateway ports.PaymentGateway,
	files ports.FileStore,
	notifier ports.Notifier,
	tx ports.Transactor,
	logger *slog.Logger,
) *ResolveHandler {
	return &ResolveHandler{
		orders:   orders,
		staging:  staging,
		batches:  batches,
		coupons:  coupons,
		gateway:  gateway,
		files:    files,
		notifier: notifier,
		tx:       tx,
		logger:   logger,
	}
}

// Handle resolves every order sharing the gateway order id. Any verdict
// other than Paid, including a transport failure, settles the batch as
// failed: the user can always retry a whole checkout, but an ambiguous hung
// state cannot be retried safely.
//
// Handle is safe to invoke repeatedly for the same gateway order id. The
// mutating path only runs while the batch still has Pending orders, checked
// under row locks, so redirect and webhook callbacks can race freely.
func (h *ResolveHandler) Handle(ctx context.Context, cmd ResolvePaymentCommand) (*ResolveResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	batch, err := h.batches.GetByGatewayOrderID(ctx, cmd.GatewayOrderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			h.logger.WarnContext(ctx, "resolve for unknown gateway order",
				"gateway_order_id", cmd.GatewayOrderID)
		}
		return nil, err
	}

	verdict, pollErr := h.gateway.PollStatus(ctx, cmd.GatewayOrderID)
	if pollErr != nil {
		h.logger.WarnContext(ctx, "gateway poll degraded to failure",
			"gateway_order_id", cmd.GatewayOrderID, "error", pollErr)
	}
	paid := verdict == ports.VerdictPaid

	result := &ResolveResult{Outcome: domain.PaymentFailed}
	if paid {
		result.Outcome = domain.PaymentSuccess
	}

	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		orders, err := h.orders.ListByGatewayOrderID(ctx, cmd.GatewayOrderID)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			return ports.ErrStateConflict
		}

		pending := orders[:0:0]
		for _, o := range orders {
			if !o.IsTerminal() {
				pending = append(pending, o)
			}
		}
		if len(pending) == 0 {
			return ports.ErrStateConflict
		}

		if paid {
			return h.settleSuccess(ctx, *batch, pending, result)
		}
		return h.settleFailure(ctx, *batch, pending, result)
	})

	if errors.Is(err, ports.ErrStateConflict) {
		// Duplicate callback on a settled batch. Logged, then absorbed:
		// the caller sees a clean no-op, never an error page.
		h.logger.InfoContext(ctx, "resolve no-op, batch already terminal",
			"gateway_order_id", cmd.GatewayOrderID)
		return &ResolveResult{AlreadyResolved: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve batch %s: %w", cmd.GatewayOrderID, err)
	}

	h.notifyResolved(ctx, result.Orders, paid)
	return result, nil
}

func (h *ResolveHandler) settleSuccess(ctx context.Context, batch domain.OrderBatch, pending []domain.Order, result *ResolveResult) error {
	for _, order := range pending {
		outcome := ports.PaymentOutcome{
			Payment:     domain.PaymentSuccess,
			Fulfillment: domain.FulfillmentPending,
		}

		path, err := h.files.Promote(ctx, order.StagedPath, order.Code)
		if err != nil {
			// The payment went through; the order must survive even if
			// its content reference is gone. Flag it for operator
			// follow-up instead of aborting the settlement.
			h.logger.ErrorContext(ctx, "staged content not promoted",
				"order_code", order.Code, "staged_path", order.StagedPath, "error", err)
			outcome.Incomplete = true
		} else {
			outcome.FilePath = path
		}

		if err := h.orders.SetPaymentOutcome(ctx, order.ID, outcome); err != nil {
			return fmt.Errorf("mark order %d paid: %w", order.ID, err)
		}

		order.PaymentStatus = outcome.Payment
		order.FulfillmentStatus = outcome.Fulfillment
		order.FilePath = outcome.FilePath
		order.Incomplete = outcome.Incomplete
		result.Orders = append(result.Orders, order)
	}

	switch batch.Origin.Kind {
	case domain.OriginCart:
		if err := h.staging.ClearCart(ctx, batch.UserID); err != nil {
			return fmt.Errorf("clear cart staging: %w", err)
		}
	case domain.OriginDirect:
		if err := h.staging.PurgeSnapshot(ctx, batch.Token); err != nil {
			return fmt.Errorf("purge snapshot: %w", err)
		}
	}

	if batch.CouponCode != nil {
		if err := h.coupons.IncrementUsage(ctx, *batch.CouponCode); err != nil {
			return fmt.Errorf("increment coupon usage: %w", err)
		}
	}

	return h.batches.Deactivate(ctx, batch.Token)
}

func (h *ResolveHandler) settleFailure(ctx context.Context, batch domain.OrderBatch, pending []domain.Order, result *ResolveResult) error {
	for _, order := range pending {
		outcome := ports.PaymentOutcome{
			Payment:     domain.PaymentFailed,
			Fulfillment: domain.FulfillmentCancelled,
		}
		if err := h.orders.SetPaymentOutcome(ctx, order.ID, outcome); err != nil {
			return fmt.Errorf("mark order %d failed: %w", order.ID, err)
		}
		order.PaymentStatus = outcome.Payment
		order.FulfillmentStatus = outcome.Fulfillment
		result.Orders = append(result.Orders, order)
	}

	// A failed cart batch leaves cart staging exactly as it was; the items
	// were never removed. A direct batch's snapshot is handed back to the
	// cart so the user's upload is not lost.
	if batch.Origin.Kind == domain.OriginDirect {
		if err := h.staging.ReleaseSnapshot(ctx, batch.Token); err != nil {
			return fmt.Errorf("release snapshot to cart: %w", err)
		}
	}

	return h.batches.Deactivate(ctx, batch.Token)
}

// notifyResolved fans out order notifications after the transaction has
// committed. Failures are logged and counted, never propagated: notification
// delivery must not unsettle a settled batch.
func (h *ResolveHandler) notifyResolved(ctx context.Context, orders []domain.Order, succeeded bool) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("notification dispatch panicked", "panic", rec)
			}
		}()
		nctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		for _, order := range orders {
			if err := h.notifier.OrderResolved(nctx, order, succeeded); err != nil {
				h.logger.ErrorContext(nctx, "order notification failed",
					"order_code", order.Code, "error", err)
			}
		}
	}()
}
