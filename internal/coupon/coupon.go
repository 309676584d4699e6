// Package coupon implements discount coupon validation. Usage accounting is
// persistence territory and lives with the checkout repositories; the rule
// there is that a coupon's usage counter moves only when a paid order actually
// applied the discount.
package coupon

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInactive       = errors.New("coupon is inactive")
	ErrNotYetValid    = errors.New("coupon is not yet valid")
	ErrExpired        = errors.New("coupon has expired")
	ErrUsageExhausted = errors.New("coupon usage limit reached")
	ErrBelowMinimum   = errors.New("order total below coupon minimum")
)

// Coupon is a percentage discount with a validity window and usage cap.
type Coupon struct {
	Code       string
	Percent    decimal.Decimal
	Active     bool
	ValidFrom  time.Time
	ValidUntil time.Time
	MinAmount  decimal.Decimal
	UsageLimit int // zero means unlimited
	UsedCount  int
}

// Validate reports whether the coupon may be applied to an order of the given
// total at the given instant. Checks run in a fixed order so the caller always
// sees the same rejection for the same coupon state.
func Validate(c Coupon, orderTotal decimal.Decimal, now time.Time) error {
	if !c.Active {
		return ErrInactive
	}
	if now.Before(c.ValidFrom) {
		return ErrNotYetValid
	}
	if now.After(c.ValidUntil) {
		return ErrExpired
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return ErrUsageExhausted
	}
	if orderTotal.LessThan(c.MinAmount) {
		return ErrBelowMinimum
	}
	return nil
}

// Discount computes the discount amount for an order total. Callers must run
// Validate first; Discount does not re-check eligibility.
func Discount(c Coupon, orderTotal decimal.Decimal) decimal.Decimal {
	return orderTotal.Mul(c.Percent).Div(decimal.NewFromInt(100)).Round(2)
}
