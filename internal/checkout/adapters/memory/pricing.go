package memory

import (
	"context"
	"sync"

	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/coupon"
	"github.com/fastcopy/printshop/internal/delivery"
	"github.com/fastcopy/printshop/internal/pricing"
)

// RateRepository holds the singleton rate sheet in memory.
type RateRepository struct {
	mu    sync.RWMutex
	table pricing.Table
	set   bool
}

func NewRateRepository(table pricing.Table) *RateRepository {
	return &RateRepository{table: table, set: true}
}

func (r *RateRepository) Active(_ context.Context) (pricing.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.set {
		return pricing.Table{}, ports.ErrNotFound
	}
	return r.table, nil
}

func (r *RateRepository) Save(_ context.Context, table pricing.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table = table
	r.set = true
	return nil
}

// CouponRepository is an in-memory coupon store.
type CouponRepository struct {
	mu      sync.RWMutex
	coupons map[string]coupon.Coupon
}

func NewCouponRepository(coupons ...coupon.Coupon) *CouponRepository {
	r := &CouponRepository{coupons: make(map[string]coupon.Coupon)}
	for _, c := range coupons {
		r.coupons[c.Code] = c
	}
	return r
}

func (r *CouponRepository) GetByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.coupons[code]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := c
	return &copy, nil
}

func (r *CouponRepository) IncrementUsage(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[code]
	if !ok {
		return ports.ErrNotFound
	}
	c.UsedCount++
	r.coupons[code] = c
	return nil
}

// HolidayRepository serves a fixed holiday set.
type HolidayRepository struct {
	mu       sync.RWMutex
	holidays delivery.HolidaySet
}

func NewHolidayRepository(holidays delivery.HolidaySet) *HolidayRepository {
	if holidays == nil {
		holidays = delivery.HolidaySet{}
	}
	return &HolidayRepository{holidays: holidays}
}

func (r *HolidayRepository) Set(_ context.Context) (delivery.HolidaySet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(delivery.HolidaySet, len(r.holidays))
	for d := range r.holidays {
		out[d] = struct{}{}
	}
	return out, nil
}
