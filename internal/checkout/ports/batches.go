package ports

import (
	"context"

	"github.com/fastcopy/printshop/internal/checkout/domain"
)

// BatchRepository persists order batches. A user has at most one active
// batch; Create must deactivate any previous batch of the same user in the
// same statement so two tabs cannot both hold an active token.
type BatchRepository interface {
	Create(ctx context.Context, batch domain.OrderBatch) error
	GetByToken(ctx context.Context, token string) (*domain.OrderBatch, error)
	GetActiveByUser(ctx context.Context, userID string) (*domain.OrderBatch, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.OrderBatch, error)
	SetGatewayOrderID(ctx context.Context, token, gatewayOrderID string) error
	AttachCoupon(ctx context.Context, token, couponCode string) error
	Deactivate(ctx context.Context, token string) error
}
