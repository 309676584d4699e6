package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastcopy/printshop/internal/checkout/app/queries"
	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/pricing"
)

// StageForPaymentCommand converts a batch into Pending/Pending order rows and
// opens a gateway session for the net amount.
type StageForPaymentCommand struct {
	BatchToken    string
	Tier          pricing.Tier
	CustomerEmail string
	CustomerPhone string
}

func (c StageForPaymentCommand) Validate() error {
	if c.BatchToken == "" {
		return errors.New("batch_token is required")
	}
	return nil
}

// StageResult is what the HTTP layer needs to redirect the user to payment.
type StageResult struct {
	GatewayOrderID string          `json:"gateway_order_id"`
	Session        ports.Session   `json:"session"`
	Amount         decimal.Decimal `json:"amount"`
	Orders         []domain.Order  `json:"orders"`
}

type StageForPaymentHandler struct {
	summaries *queries.SummaryHandler
	orders    ports.OrderRepository
	batches   ports.BatchRepository
	gateway   ports.PaymentGateway
	tx        ports.Transactor
	currency  string
	now       func() time.Time
}

func NewStageForPaymentHandler(
	summaries *queries.SummaryHandler,
	orders ports.OrderRepository,
	batches ports.BatchRepository,
	gateway ports.PaymentGateway,
	tx ports.Transactor,
	currency string,
) *StageForPaymentHandler {
	return &StageForPaymentHandler{
		summaries: summaries,
		orders:    orders,
		batches:   batches,
		gateway:   gateway,
		tx:        tx,
		currency:  currency,
		now:       time.Now,
	}
}

// Handle pre-records every item as a Pending/Pending order before the
// gateway is contacted. The rows are what let a later callback be reconciled
// even if the user's session is gone. A retried checkout mints a fresh
// gateway order id, so the remote side never sees a duplicate.
func (h *StageForPaymentHandler) Handle(ctx context.Context, cmd StageForPaymentCommand) (*StageResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	summary, err := h.summaries.Handle(ctx, queries.SummaryQuery{BatchToken: cmd.BatchToken, Tier: cmd.Tier})
	if err != nil {
		return nil, err
	}
	if summary.CouponRejection != "" {
		return nil, fmt.Errorf("coupon rejected: %s", summary.CouponRejection)
	}

	gatewayOrderID := domain.MintGatewayOrderID(cmd.BatchToken)
	batch := summary.Batch

	result := &StageResult{
		GatewayOrderID: gatewayOrderID,
		Amount:         summary.GrandTotal,
	}

	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		for i, priced := range summary.Items {
			order := buildOrder(batch, priced, summary, gatewayOrderID, h.now().UTC())
			if i == 0 {
				// The batch-level discount is recorded once, on the
				// first order of the batch.
				order.DiscountAmount = summary.Discount
			}

			id, err := h.orders.CreateDraft(ctx, order)
			if err != nil {
				return fmt.Errorf("create order draft: %w", err)
			}
			code, err := h.orders.AssignCode(ctx, id)
			if err != nil {
				return fmt.Errorf("assign order code: %w", err)
			}
			order.ID = id
			order.Code = code
			result.Orders = append(result.Orders, order)
		}

		if err := h.batches.SetGatewayOrderID(ctx, batch.Token, gatewayOrderID); err != nil {
			return fmt.Errorf("record gateway order id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session, err := h.gateway.CreateSession(ctx, ports.CreateSessionInput{
		GatewayOrderID: gatewayOrderID,
		Amount:         summary.GrandTotal,
		Currency:       h.currency,
		CustomerID:     batch.UserID,
		CustomerEmail:  cmd.CustomerEmail,
		CustomerPhone:  cmd.CustomerPhone,
	})
	if err != nil {
		// The pending rows stay behind on purpose: the reconciliation
		// sweep will fail them if no payment ever arrives, and the user
		// can retry the checkout immediately.
		return nil, err
	}

	result.Session = session
	return result, nil
}

func buildOrder(batch domain.OrderBatch, priced queries.PricedItem, summary *queries.Summary, gatewayOrderID string, now time.Time) domain.Order {
	item := priced.Item
	return domain.Order{
		UserID:            batch.UserID,
		Service:           item.Service,
		Mode:              item.Mode,
		Sides:             item.Sides,
		Layout:            item.Layout,
		Pages:             item.Pages,
		Copies:            item.Copies,
		ColorPages:        item.ColorPages,
		Location:          item.Location,
		CouponCode:        batch.CouponCode,
		DiscountAmount:    decimal.Zero,
		TotalAmount:       priced.Price,
		PaymentStatus:     domain.PaymentPending,
		FulfillmentStatus: domain.FulfillmentPending,
		BatchToken:        batch.Token,
		GatewayOrderID:    gatewayOrderID,
		StagedPath:        item.FilePath,
		EstimatedDelivery: summary.EstimatedDelivery,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
