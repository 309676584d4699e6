package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/pricing"
)

// BeginCheckoutCommand mints a fresh batch for a user. Cart checkouts draw
// from the user's staged cart; direct checkouts carry the one ad hoc item.
type BeginCheckoutCommand struct {
	UserID     string
	Origin     domain.OriginKind
	DirectItem *domain.StagedItem
	CouponCode string
	Tier       pricing.Tier
}

func (c BeginCheckoutCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id is required")
	}
	switch c.Origin {
	case domain.OriginCart:
		if c.DirectItem != nil {
			return errors.New("cart checkout does not take an item")
		}
	case domain.OriginDirect:
		if c.DirectItem == nil {
			return errors.New("direct checkout requires an item")
		}
	default:
		return errors.New("unknown checkout origin")
	}
	return nil
}

type BeginCheckoutHandler struct {
	batches ports.BatchRepository
	staging ports.StagingStore
	coupons ports.CouponRepository
	rates   ports.RateRepository
	now     func() time.Time
}

func NewBeginCheckoutHandler(
	batches ports.BatchRepository,
	staging ports.StagingStore,
	coupons ports.CouponRepository,
	rates ports.RateRepository,
) *BeginCheckoutHandler {
	return &BeginCheckoutHandler{
		batches: batches,
		staging: staging,
		coupons: coupons,
		rates:   rates,
		now:     time.Now,
	}
}

// Handle invalidates the user's previous batch, mints a new token, and for
// direct checkouts snapshots the item into durable staging immediately. The
// snapshot is a deliberate fail-safe: cancel-by-navigation before payment
// must not lose the job.
func (h *BeginCheckoutHandler) Handle(ctx context.Context, cmd BeginCheckoutCommand) (*domain.OrderBatch, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if cmd.Origin == domain.OriginCart {
		items, err := h.staging.ListCart(ctx, cmd.UserID)
		if err != nil {
			return nil, fmt.Errorf("read cart: %w", err)
		}
		if len(items) == 0 {
			return nil, errors.New("cart is empty")
		}
	}

	prev, err := h.batches.GetActiveByUser(ctx, cmd.UserID)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, fmt.Errorf("look up active batch: %w", err)
	}
	if prev != nil {
		if err := h.batches.Deactivate(ctx, prev.Token); err != nil {
			return nil, fmt.Errorf("deactivate previous batch: %w", err)
		}
		if prev.Origin.Kind == domain.OriginDirect {
			if err := h.staging.PurgeSnapshot(ctx, prev.Token); err != nil {
				return nil, fmt.Errorf("purge previous snapshot: %w", err)
			}
		}
	}

	batch := domain.OrderBatch{
		Token:     domain.MintToken(cmd.Origin),
		Origin:    domain.BatchOrigin{Kind: cmd.Origin},
		UserID:    cmd.UserID,
		Active:    true,
		CreatedAt: h.now().UTC(),
	}

	if cmd.Origin == domain.OriginDirect {
		item := *cmd.DirectItem
		item.UserID = cmd.UserID
		if err := item.Validate(); err != nil {
			return nil, err
		}

		table, err := h.rates.Active(ctx)
		if err != nil {
			return nil, fmt.Errorf("load rate table: %w", err)
		}
		item.UnitPrice = pricing.Price(item.Job(), table.Card(cmd.Tier))

		snap, err := h.staging.AddSnapshot(ctx, item, batch.Token)
		if err != nil {
			return nil, fmt.Errorf("snapshot direct item: %w", err)
		}
		batch.Origin.ItemID = snap.ID
	}

	if cmd.CouponCode != "" {
		if _, err := h.coupons.GetByCode(ctx, cmd.CouponCode); err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return nil, errors.New("unknown coupon code")
			}
			return nil, fmt.Errorf("look up coupon: %w", err)
		}
		code := cmd.CouponCode
		batch.CouponCode = &code
	}

	if err := h.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	return &batch, nil
}
