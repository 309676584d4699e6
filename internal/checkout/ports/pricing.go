package ports

import (
	"context"

	"github.com/fastcopy/printshop/internal/coupon"
	"github.com/fastcopy/printshop/internal/delivery"
	"github.com/fastcopy/printshop/internal/pricing"
)

// RateRepository reads and replaces the singleton rate sheet.
type RateRepository interface {
	Active(ctx context.Context) (pricing.Table, error)
	Save(ctx context.Context, table pricing.Table) error
}

// CouponRepository reads coupons and tracks usage. IncrementUsage is the only
// mutator of a coupon's usage counter and must run inside the same
// transaction that marks the batch's orders paid.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	IncrementUsage(ctx context.Context, code string) error
}

// HolidayRepository loads the declared public holidays.
type HolidayRepository interface {
	Set(ctx context.Context) (delivery.HolidaySet, error)
}
