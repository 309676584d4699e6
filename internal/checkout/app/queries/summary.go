package queries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/coupon"
	"github.com/fastcopy/printshop/internal/delivery"
	"github.com/fastcopy/printshop/internal/pricing"
)

// ErrBatchInactive is returned when a summary is requested for a token that
// a newer checkout has invalidated.
var ErrBatchInactive = errors.New("batch is no longer active")

// SummaryQuery prices a batch for display before payment.
type SummaryQuery struct {
	BatchToken string
	Tier       pricing.Tier
}

func (q SummaryQuery) Validate() error {
	if q.BatchToken == "" {
		return errors.New("batch_token is required")
	}
	return nil
}

// PricedItem is one staged item with its computed price.
type PricedItem struct {
	Item  domain.StagedItem `json:"item"`
	Price decimal.Decimal   `json:"price"`
}

// Summary is the full price breakdown shown to the user.
type Summary struct {
	Batch             domain.OrderBatch `json:"batch"`
	Items             []PricedItem      `json:"items"`
	ItemTotal         decimal.Decimal   `json:"item_total"`
	DeliverySurcharge decimal.Decimal   `json:"delivery_surcharge"`
	CouponCode        *string           `json:"coupon_code,omitempty"`
	CouponRejection   string            `json:"coupon_rejection,omitempty"`
	Discount          decimal.Decimal   `json:"discount"`
	GrandTotal        decimal.Decimal   `json:"grand_total"`
	EstimatedDelivery delivery.Date     `json:"estimated_delivery"`
}

type SummaryHandler struct {
	batches  ports.BatchRepository
	staging  ports.StagingStore
	rates    ports.RateRepository
	coupons  ports.CouponRepository
	holidays ports.HolidayRepository
	loc      *time.Location
	now      func() time.Time
}

func NewSummaryHandler(
	batches ports.BatchRepository,
	staging ports.StagingStore,
	rates ports.RateRepository,
	coupons ports.CouponRepository,
	holidays ports.HolidayRepository,
	loc *time.Location,
) *SummaryHandler {
	return &SummaryHandler{
		batches:  batches,
		staging:  staging,
		rates:    rates,
		coupons:  coupons,
		holidays: holidays,
		loc:      loc,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (h *SummaryHandler) WithClock(now func() time.Time) *SummaryHandler {
	h.now = now
	return h
}

// Handle resolves the batch's items strictly by origin: a cart batch reads
// the whole cart, a direct batch reads only its own snapshot. A coupon that
// fails validation is reported in the summary rather than failing it; the
// user fixes or drops the coupon and the order proceeds.
func (h *SummaryHandler) Handle(ctx context.Context, query SummaryQuery) (*Summary, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	batch, err := h.batches.GetByToken(ctx, query.BatchToken)
	if err != nil {
		return nil, err
	}
	if !batch.Active {
		return nil, ErrBatchInactive
	}

	var items []domain.StagedItem
	switch batch.Origin.Kind {
	case domain.OriginCart:
		items, err = h.staging.ListCart(ctx, batch.UserID)
	case domain.OriginDirect:
		items, err = h.staging.ListSnapshot(ctx, batch.Token)
	default:
		return nil, fmt.Errorf("batch %s has unknown origin %q", batch.Token, batch.Origin.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("load batch items: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("batch has no staged items")
	}

	table, err := h.rates.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rate table: %w", err)
	}
	card := table.Card(query.Tier)

	summary := &Summary{
		Batch:             *batch,
		Items:             make([]PricedItem, 0, len(items)),
		DeliverySurcharge: card.DeliverySurcharge,
		CouponCode:        batch.CouponCode,
		Discount:          decimal.Zero,
	}

	for _, item := range items {
		price := pricing.Price(item.Job(), card)
		summary.Items = append(summary.Items, PricedItem{Item: item, Price: price})
		summary.ItemTotal = summary.ItemTotal.Add(price)
	}

	total := summary.ItemTotal.Add(summary.DeliverySurcharge)

	if batch.CouponCode != nil {
		c, err := h.coupons.GetByCode(ctx, *batch.CouponCode)
		if err != nil {
			return nil, fmt.Errorf("load coupon: %w", err)
		}
		if verr := coupon.Validate(*c, total, h.now()); verr != nil {
			summary.CouponRejection = verr.Error()
		} else {
			summary.Discount = coupon.Discount(*c, total)
		}
	}

	holidays, err := h.holidays.Set(ctx)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	summary.EstimatedDelivery = delivery.Estimate(h.now(), h.loc, holidays)
	summary.GrandTotal = total.Sub(summary.Discount)

	return summary, nil
}
