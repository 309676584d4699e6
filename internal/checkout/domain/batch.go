package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OriginKind distinguishes how a batch entered checkout. The origin is an
// explicit variant rather than a token prefix to parse: the printable prefix
// below exists only for operator-facing identifiers.
type OriginKind string

const (
	// OriginCart batches draw every item from the user's cart staging.
	OriginCart OriginKind = "cart"
	// OriginDirect batches carry exactly one ad hoc item, snapshotted into
	// durable staging at checkout start so navigation away cannot lose it.
	OriginDirect OriginKind = "direct"
)

// BatchOrigin is the tagged origin of a batch. ItemID is set only for direct
// batches and references the snapshotted staged item.
type BatchOrigin struct {
	Kind   OriginKind `json:"kind"`
	ItemID int64      `json:"item_id,omitempty"`
}

// OrderBatch groups the staged items checked out together under one token.
// A user has at most one active batch; starting a new checkout deactivates
// the previous one and clears its snapshot residue.
type OrderBatch struct {
	Token          string      `json:"token"`
	Origin         BatchOrigin `json:"origin"`
	UserID         string      `json:"user_id"`
	CouponCode     *string     `json:"coupon_code,omitempty"`
	GatewayOrderID string      `json:"gateway_order_id,omitempty"`
	Active         bool        `json:"active"`
	CreatedAt      time.Time   `json:"created_at"`
}

// MintToken creates a fresh batch token. The origin prefix is cosmetic; code
// must branch on OrderBatch.Origin, never on the token text.
func MintToken(kind OriginKind) string {
	prefix := "CART"
	if kind == OriginDirect {
		prefix = "DIRECT"
	}
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// MintGatewayOrderID derives a gateway-unique order id from the batch token.
// The uuid salt keeps retried checkouts of the same batch distinct on the
// gateway side.
func MintGatewayOrderID(token string) string {
	return fmt.Sprintf("%s-%s", shortToken(token), uuid.New().String()[:8])
}

func shortToken(token string) string {
	if len(token) > 16 {
		return token[:16]
	}
	return token
}
