package ports

import (
	"context"
	"errors"

	"github.com/fastcopy/printshop/internal/checkout/domain"
)

// ErrContentMissing is returned by Promote when a staged item's content
// reference has disappeared. The order is flagged incomplete rather than
// dropped.
var ErrContentMissing = errors.New("staged content missing")

// FileStore moves order content between staging and permanent storage.
// Upload mechanics live outside this core: staging paths arrive with the
// staged item, and this port only relocates bytes.
type FileStore interface {
	// Promote moves staged content into permanent storage for an order and
	// returns the permanent path.
	Promote(ctx context.Context, stagedPath, orderCode string) (string, error)
}

// Notifier emits order-resolved events to the customer, any assigned dealer
// and the admin. Delivery is an external collaborator: implementations are
// fire-and-forget and must never fail or block reconciliation.
type Notifier interface {
	OrderResolved(ctx context.Context, order domain.Order, succeeded bool) error
}
