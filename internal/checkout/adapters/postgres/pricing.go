package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/coupon"
	"github.com/fastcopy/printshop/internal/database"
	"github.com/fastcopy/printshop/internal/delivery"
	"github.com/fastcopy/printshop/internal/pricing"
)

// RateRepository stores the rate sheet as a single versioned row. Rate cards
// are JSON documents: the card layout changes more often than the schema
// should.
type RateRepository struct {
	pool *pgxpool.Pool
}

func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

func (r *RateRepository) Active(ctx context.Context) (pricing.Table, error) {
	query := `
		SELECT version, regular_card, dealer_card, updated_at
		FROM pricing_config
		ORDER BY version DESC
		LIMIT 1
	`

	q := database.QuerierFromContext(ctx, r.pool)

	var table pricing.Table
	var regular, dealer []byte

	err := q.QueryRow(ctx, query).Scan(&table.Version, &regular, &dealer, &table.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Table{}, ports.ErrNotFound
		}
		return pricing.Table{}, fmt.Errorf("select rate sheet: %w", err)
	}

	if err := json.Unmarshal(regular, &table.Regular); err != nil {
		return pricing.Table{}, fmt.Errorf("decode regular rate card: %w", err)
	}
	if err := json.Unmarshal(dealer, &table.Dealer); err != nil {
		return pricing.Table{}, fmt.Errorf("decode dealer rate card: %w", err)
	}

	return table, nil
}

func (r *RateRepository) Save(ctx context.Context, table pricing.Table) error {
	query := `
		INSERT INTO pricing_config (version, regular_card, dealer_card, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (version) DO UPDATE
		SET regular_card = EXCLUDED.regular_card,
		    dealer_card = EXCLUDED.dealer_card,
		    updated_at = EXCLUDED.updated_at
	`

	regular, err := json.Marshal(table.Regular)
	if err != nil {
		return fmt.Errorf("encode regular rate card: %w", err)
	}
	dealer, err := json.Marshal(table.Dealer)
	if err != nil {
		return fmt.Errorf("encode dealer rate card: %w", err)
	}

	if table.UpdatedAt.IsZero() {
		table.UpdatedAt = time.Now().UTC()
	}

	q := database.QuerierFromContext(ctx, r.pool)

	if _, err := q.Exec(ctx, query, table.Version, regular, dealer, table.UpdatedAt); err != nil {
		return fmt.Errorf("save rate sheet: %w", err)
	}

	return nil
}

type CouponRepository struct {
	pool *pgxpool.Pool
}

func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	query := `
		SELECT code, percent::text, active, valid_from, valid_until, min_amount::text, usage_limit, used_count
		FROM coupons
		WHERE code = $1
	`

	q := database.QuerierFromContext(ctx, r.pool)

	var c coupon.Coupon
	var percent, minAmount string

	err := q.QueryRow(ctx, query, code).Scan(
		&c.Code,
		&percent,
		&c.Active,
		&c.ValidFrom,
		&c.ValidUntil,
		&minAmount,
		&c.UsageLimit,
		&c.UsedCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select coupon: %w", err)
	}

	if c.Percent, err = decimal.NewFromString(percent); err != nil {
		return nil, fmt.Errorf("parse coupon percent: %w", err)
	}
	if c.MinAmount, err = decimal.NewFromString(minAmount); err != nil {
		return nil, fmt.Errorf("parse coupon minimum: %w", err)
	}

	return &c, nil
}

func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) error {
	query := `UPDATE coupons SET used_count = used_count + 1 WHERE code = $1`

	q := database.QuerierFromContext(ctx, r.pool)

	result, err := q.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	return nil
}

type HolidayRepository struct {
	pool *pgxpool.Pool
}

func NewHolidayRepository(pool *pgxpool.Pool) *HolidayRepository {
	return &HolidayRepository{pool: pool}
}

func (r *HolidayRepository) Set(ctx context.Context) (delivery.HolidaySet, error) {
	query := `SELECT holiday FROM public_holidays`

	q := database.QuerierFromContext(ctx, r.pool)

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query public holidays: %w", err)
	}
	defer rows.Close()

	holidays := delivery.HolidaySet{}
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan public holiday: %w", err)
		}
		holidays[delivery.DateOf(day)] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate public holidays: %w", err)
	}

	return holidays, nil
}
