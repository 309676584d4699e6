package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/database"
)

const batchColumns = `
	token, origin_kind, origin_item_id, user_id,
	coupon_code, gateway_order_id, active, created_at`

type BatchRepository struct {
	pool *pgxpool.Pool
}

func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

// Create inserts the batch and retires any other active batch the user holds,
// keeping the one-active-batch invariant inside a single transaction.
func (r *BatchRepository) Create(ctx context.Context, batch domain.OrderBatch) error {
	deactivate := `UPDATE order_batches SET active = FALSE WHERE user_id = $1 AND active`
	insert := `
		INSERT INTO order_batches (
			token, origin_kind, origin_item_id, user_id,
			coupon_code, gateway_order_id, active, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}

	var itemID *int64
	if batch.Origin.ItemID != 0 {
		itemID = &batch.Origin.ItemID
	}

	run := func(ctx context.Context) error {
		q := database.QuerierFromContext(ctx, r.pool)

		if _, err := q.Exec(ctx, deactivate, batch.UserID); err != nil {
			return fmt.Errorf("deactivate previous batches: %w", err)
		}

		_, err := q.Exec(ctx, insert,
			batch.Token,
			batch.Origin.Kind,
			itemID,
			batch.UserID,
			batch.CouponCode,
			batch.GatewayOrderID,
			batch.Active,
			batch.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}

		return nil
	}

	if _, inTx := database.TxFromContext(ctx); inTx {
		return run(ctx)
	}
	return database.NewTransactor(r.pool).WithinTx(ctx, run)
}

func (r *BatchRepository) GetByToken(ctx context.Context, token string) (*domain.OrderBatch, error) {
	query := `SELECT` + batchColumns + ` FROM order_batches WHERE token = $1`
	return r.getOne(ctx, query, token)
}

func (r *BatchRepository) GetActiveByUser(ctx context.Context, userID string) (*domain.OrderBatch, error) {
	query := `SELECT` + batchColumns + ` FROM order_batches WHERE user_id = $1 AND active ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, userID)
}

func (r *BatchRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.OrderBatch, error) {
	query := `SELECT` + batchColumns + ` FROM order_batches WHERE gateway_order_id = $1`
	return r.getOne(ctx, query, gatewayOrderID)
}

func (r *BatchRepository) getOne(ctx context.Context, query string, arg any) (*domain.OrderBatch, error) {
	q := database.QuerierFromContext(ctx, r.pool)

	var batch domain.OrderBatch
	var itemID *int64

	err := q.QueryRow(ctx, query, arg).Scan(
		&batch.Token,
		&batch.Origin.Kind,
		&itemID,
		&batch.UserID,
		&batch.CouponCode,
		&batch.GatewayOrderID,
		&batch.Active,
		&batch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select batch: %w", err)
	}

	if itemID != nil {
		batch.Origin.ItemID = *itemID
	}

	return &batch, nil
}

func (r *BatchRepository) SetGatewayOrderID(ctx context.Context, token, gatewayOrderID string) error {
	query := `UPDATE order_batches SET gateway_order_id = $1 WHERE token = $2`
	return r.exec(ctx, query, gatewayOrderID, token)
}

func (r *BatchRepository) AttachCoupon(ctx context.Context, token, couponCode string) error {
	query := `UPDATE order_batches SET coupon_code = $1 WHERE token = $2`
	return r.exec(ctx, query, couponCode, token)
}

func (r *BatchRepository) Deactivate(ctx context.Context, token string) error {
	query := `UPDATE order_batches SET active = FALSE WHERE token = $1`
	return r.exec(ctx, query, token)
}

func (r *BatchRepository) exec(ctx context.Context, query string, args ...any) error {
	q := database.QuerierFromContext(ctx, r.pool)

	result, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	return nil
}
