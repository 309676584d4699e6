package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastcopy/printshop/internal/delivery"
	"github.com/fastcopy/printshop/internal/pricing"
)

// PaymentStatus is the payment axis of an order's lifecycle.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// FulfillmentStatus is the dealer-side axis of an order's lifecycle.
type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentReady     FulfillmentStatus = "ready"
	FulfillmentDelivered FulfillmentStatus = "delivered"
	FulfillmentCancelled FulfillmentStatus = "cancelled"
)

// Order is the permanent record of one print job. It is created in
// Pending/Pending state before the gateway redirect so a lost session can
// still be reconciled, mutated in place exactly once by reconciliation, and
// never deleted.
type Order struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"` // public code, assigned after the row exists
	UserID string `json:"user_id"`

	Service    pricing.ServiceType `json:"service"`
	Mode       pricing.PrintMode   `json:"mode"`
	Sides      pricing.Sides       `json:"sides"`
	Layout     int                 `json:"layout,omitempty"`
	Pages      int                 `json:"pages"`
	Copies     int                 `json:"copies"`
	ColorPages string              `json:"color_pages,omitempty"`
	Location   string              `json:"location,omitempty"`

	CouponCode     *string         `json:"coupon_code,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	PaymentStatus     PaymentStatus     `json:"payment_status"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`

	BatchToken     string `json:"batch_token"`
	GatewayOrderID string `json:"gateway_order_id"`

	// StagedPath points at the uploaded content while payment is pending;
	// FilePath is set when the content is promoted to permanent storage.
	StagedPath string `json:"-"`
	FilePath   string `json:"file_path,omitempty"`
	// Incomplete marks an order whose staged content was missing at
	// promotion time. The order is kept rather than silently dropped.
	Incomplete bool `json:"incomplete,omitempty"`

	EstimatedDelivery delivery.Date `json:"estimated_delivery"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// FormatCode derives the public order code from a row's primary key.
func FormatCode(id int64) string {
	return fmt.Sprintf("FC%06d", id)
}

// IsTerminal reports whether payment reconciliation has already run for this
// order. Terminal orders must never be mutated again.
func (o Order) IsTerminal() bool {
	return o.PaymentStatus != PaymentPending
}

// NetAmount is what the customer actually pays after any discount.
func (o Order) NetAmount() decimal.Decimal {
	return o.TotalAmount.Sub(o.DiscountAmount)
}
