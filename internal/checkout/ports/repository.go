package ports

import (
	"context"
	"errors"
	"time"

	"github.com/fastcopy/printshop/internal/checkout/domain"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStateConflict is returned when reconciliation is invoked for a
	// batch with no pending orders left. Callers treat it as a no-op.
	ErrStateConflict = errors.New("no pending orders for batch")
)

// OrderRepository persists permanent order records. Order rows are created in
// Pending/Pending state before the gateway redirect and mutated exactly once
// by reconciliation; they are never deleted.
type OrderRepository interface {
	// CreateDraft inserts the row and returns its primary key. The public
	// code is not assigned yet.
	CreateDraft(ctx context.Context, order domain.Order) (int64, error)
	// AssignCode writes the public code derived from the row's own primary
	// key. It is idempotent: a row that already has a code keeps it.
	AssignCode(ctx context.Context, id int64) (string, error)

	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByCode(ctx context.Context, code string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// ListByGatewayOrderID returns every order sharing the gateway order id
	// in creation order, so positional matching against staged items is
	// stable. Implementations must lock the rows when running inside a
	// transaction.
	ListByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]domain.Order, error)

	// SetPaymentOutcome records the terminal verdict for one order.
	SetPaymentOutcome(ctx context.Context, id int64, outcome PaymentOutcome) error

	// ListStalePendingGatewayIDs returns gateway order ids whose orders are
	// still pending and older than the cutoff, for the reconciliation sweep.
	ListStalePendingGatewayIDs(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

// PaymentOutcome is the per-order write applied by reconciliation.
type PaymentOutcome struct {
	Payment     domain.PaymentStatus
	Fulfillment domain.FulfillmentStatus
	FilePath    string
	Incomplete  bool
}

// Transactor runs a function inside one storage transaction. Repository
// calls made with the context it passes to fn join that transaction, which
// is how reconciliation applies its staging and order writes as one unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
