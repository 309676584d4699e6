package ports

import (
	"context"

	"github.com/fastcopy/printshop/internal/checkout/domain"
)

// StagingStore is the durable holding area for pending print jobs. Cart items
// carry no batch token; a direct checkout's single item is snapshotted with
// its batch token attached so it survives navigation and never mixes with the
// cart.
type StagingStore interface {
	// Add stages an item into the user's cart and returns it with its id.
	Add(ctx context.Context, item domain.StagedItem) (domain.StagedItem, error)
	// AddSnapshot stages an ad hoc item already bound to a direct batch.
	AddSnapshot(ctx context.Context, item domain.StagedItem, batchToken string) (domain.StagedItem, error)

	// ListCart returns the user's cart items in creation order.
	ListCart(ctx context.Context, userID string) ([]domain.StagedItem, error)
	// ListSnapshot returns the items bound to a batch token in creation order.
	ListSnapshot(ctx context.Context, batchToken string) ([]domain.StagedItem, error)

	Get(ctx context.Context, userID string, itemID int64) (*domain.StagedItem, error)
	Remove(ctx context.Context, userID string, itemID int64) error

	// ClearCart purges the user's cart staging after a successful cart batch.
	ClearCart(ctx context.Context, userID string) error
	// PurgeSnapshot deletes a batch's snapshot items.
	PurgeSnapshot(ctx context.Context, batchToken string) error
	// ReleaseSnapshot detaches a batch's snapshot items back into the cart,
	// so a failed direct payment does not lose the user's work.
	ReleaseSnapshot(ctx context.Context, batchToken string) error
}

// CartMirror is a session-local echo of the cart used for fast UI reads. The
// durable StagingStore is the source of truth; the mirror is rewritten on
// every cart read and is allowed to be stale or missing.
type CartMirror interface {
	Refresh(ctx context.Context, userID string, items []domain.StagedItem) error
	Count(ctx context.Context, userID string) (int, bool, error)
	Invalidate(ctx context.Context, userID string) error
}
