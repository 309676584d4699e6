package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/database"
	"github.com/fastcopy/printshop/internal/delivery"
)

// Amounts travel as text so numeric columns round-trip without float drift.
const orderColumns = `
	id, code, user_id,
	service, mode, sides, layout, pages, copies, color_pages, location,
	coupon_code, discount_amount::text, total_amount::text,
	payment_status, fulfillment_status,
	batch_token, gateway_order_id,
	staged_path, file_path, incomplete,
	estimated_delivery, created_at, updated_at`

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) CreateDraft(ctx context.Context, order domain.Order) (int64, error) {
	query := `
		INSERT INTO orders (
			code, user_id,
			service, mode, sides, layout, pages, copies, color_pages, location,
			coupon_code, discount_amount, total_amount,
			payment_status, fulfillment_status,
			batch_token, gateway_order_id,
			staged_path, file_path, incomplete,
			estimated_delivery, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id
	`

	q := database.QuerierFromContext(ctx, r.pool)

	var id int64
	err := q.QueryRow(ctx, query,
		order.Code,
		order.UserID,
		order.Service,
		order.Mode,
		order.Sides,
		order.Layout,
		order.Pages,
		order.Copies,
		order.ColorPages,
		order.Location,
		order.CouponCode,
		order.DiscountAmount.String(),
		order.TotalAmount.String(),
		order.PaymentStatus,
		order.FulfillmentStatus,
		order.BatchToken,
		order.GatewayOrderID,
		order.StagedPath,
		order.FilePath,
		order.Incomplete,
		order.EstimatedDelivery.Time(time.UTC),
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	return id, nil
}

func (r *OrderRepository) AssignCode(ctx context.Context, id int64) (string, error) {
	query := `
		UPDATE orders
		SET code = $1, updated_at = $2
		WHERE id = $3 AND code = ''
	`

	code := domain.FormatCode(id)
	q := database.QuerierFromContext(ctx, r.pool)

	result, err := q.Exec(ctx, query, code, time.Now().UTC(), id)
	if err != nil {
		return "", fmt.Errorf("assign order code: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either the row is missing or the code was already assigned.
		existing, err := r.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		return existing.Code, nil
	}

	return code, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *OrderRepository) GetByCode(ctx context.Context, code string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE code = $1`
	return r.getOne(ctx, query, code)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	q := database.QuerierFromContext(ctx, r.pool)

	order, err := scanOrder(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	return order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY id DESC`
	return r.list(ctx, query, userID)
}

func (r *OrderRepository) ListByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]domain.Order, error) {
	// Creation order keeps positional matching against staged items stable.
	query := `SELECT` + orderColumns + ` FROM orders WHERE gateway_order_id = $1 ORDER BY id`
	if _, inTx := database.TxFromContext(ctx); inTx {
		query += ` FOR UPDATE`
	}
	return r.list(ctx, query, gatewayOrderID)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	q := database.QuerierFromContext(ctx, r.pool)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func (r *OrderRepository) SetPaymentOutcome(ctx context.Context, id int64, outcome ports.PaymentOutcome) error {
	query := `
		UPDATE orders
		SET payment_status = $1, fulfillment_status = $2, file_path = $3, incomplete = $4, updated_at = $5
		WHERE id = $6
	`

	q := database.QuerierFromContext(ctx, r.pool)

	result, err := q.Exec(ctx, query,
		outcome.Payment,
		outcome.Fulfillment,
		outcome.FilePath,
		outcome.Incomplete,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update payment outcome: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	return nil
}

func (r *OrderRepository) ListStalePendingGatewayIDs(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	query := `
		SELECT gateway_order_id
		FROM orders
		WHERE payment_status = $1 AND gateway_order_id <> '' AND created_at < $2
		GROUP BY gateway_order_id
		ORDER BY min(created_at)
		LIMIT $3
	`

	q := database.QuerierFromContext(ctx, r.pool)

	rows, err := q.Query(ctx, query, domain.PaymentPending, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale gateway ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan gateway id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gateway ids: %w", err)
	}

	return ids, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var discount, total string
	var estimatedDelivery time.Time

	err := row.Scan(
		&order.ID,
		&order.Code,
		&order.UserID,
		&order.Service,
		&order.Mode,
		&order.Sides,
		&order.Layout,
		&order.Pages,
		&order.Copies,
		&order.ColorPages,
		&order.Location,
		&order.CouponCode,
		&discount,
		&total,
		&order.PaymentStatus,
		&order.FulfillmentStatus,
		&order.BatchToken,
		&order.GatewayOrderID,
		&order.StagedPath,
		&order.FilePath,
		&order.Incomplete,
		&estimatedDelivery,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if order.DiscountAmount, err = decimal.NewFromString(discount); err != nil {
		return nil, fmt.Errorf("parse discount amount: %w", err)
	}
	if order.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	order.EstimatedDelivery = delivery.DateOf(estimatedDelivery)

	return &order, nil
}
