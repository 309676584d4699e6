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
)

const stagedItemColumns = `
	id, user_id, service, mode, sides, layout, pages, copies,
	color_pages, location, file_path, unit_price::text, created_at`

// StagingStore keeps pending print jobs in the staged_items table. A NULL
// batch_token means the item sits in the user's cart; a set token binds it to
// a direct checkout snapshot.
type StagingStore struct {
	pool *pgxpool.Pool
}

func NewStagingStore(pool *pgxpool.Pool) *StagingStore {
	return &StagingStore{pool: pool}
}

func (s *StagingStore) Add(ctx context.Context, item domain.StagedItem) (domain.StagedItem, error) {
	return s.insert(ctx, item, nil)
}

func (s *StagingStore) AddSnapshot(ctx context.Context, item domain.StagedItem, batchToken string) (domain.StagedItem, error) {
	return s.insert(ctx, item, &batchToken)
}

func (s *StagingStore) insert(ctx context.Context, item domain.StagedItem, batchToken *string) (domain.StagedItem, error) {
	query := `
		INSERT INTO staged_items (
			user_id, service, mode, sides, layout, pages, copies,
			color_pages, location, file_path, unit_price, batch_token, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	q := database.QuerierFromContext(ctx, s.pool)

	err := q.QueryRow(ctx, query,
		item.UserID,
		item.Service,
		item.Mode,
		item.Sides,
		item.Layout,
		item.Pages,
		item.Copies,
		item.ColorPages,
		item.Location,
		item.FilePath,
		item.UnitPrice.String(),
		batchToken,
		item.CreatedAt,
	).Scan(&item.ID)
	if err != nil {
		return domain.StagedItem{}, fmt.Errorf("insert staged item: %w", err)
	}

	return item, nil
}

func (s *StagingStore) ListCart(ctx context.Context, userID string) ([]domain.StagedItem, error) {
	query := `SELECT` + stagedItemColumns + ` FROM staged_items WHERE user_id = $1 AND batch_token IS NULL ORDER BY id`
	return s.list(ctx, query, userID)
}

func (s *StagingStore) ListSnapshot(ctx context.Context, batchToken string) ([]domain.StagedItem, error) {
	query := `SELECT` + stagedItemColumns + ` FROM staged_items WHERE batch_token = $1 ORDER BY id`
	return s.list(ctx, query, batchToken)
}

func (s *StagingStore) list(ctx context.Context, query string, args ...any) ([]domain.StagedItem, error) {
	q := database.QuerierFromContext(ctx, s.pool)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query staged items: %w", err)
	}
	defer rows.Close()

	var items []domain.StagedItem
	for rows.Next() {
		item, err := scanStagedItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staged item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staged items: %w", err)
	}

	return items, nil
}

func (s *StagingStore) Get(ctx context.Context, userID string, itemID int64) (*domain.StagedItem, error) {
	query := `SELECT` + stagedItemColumns + ` FROM staged_items WHERE id = $1 AND user_id = $2`

	q := database.QuerierFromContext(ctx, s.pool)

	item, err := scanStagedItem(q.QueryRow(ctx, query, itemID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select staged item: %w", err)
	}

	return item, nil
}

func (s *StagingStore) Remove(ctx context.Context, userID string, itemID int64) error {
	query := `DELETE FROM staged_items WHERE id = $1 AND user_id = $2`

	q := database.QuerierFromContext(ctx, s.pool)

	result, err := q.Exec(ctx, query, itemID, userID)
	if err != nil {
		return fmt.Errorf("delete staged item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	return nil
}

func (s *StagingStore) ClearCart(ctx context.Context, userID string) error {
	query := `DELETE FROM staged_items WHERE user_id = $1 AND batch_token IS NULL`

	q := database.QuerierFromContext(ctx, s.pool)

	if _, err := q.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("clear cart staging: %w", err)
	}

	return nil
}

func (s *StagingStore) PurgeSnapshot(ctx context.Context, batchToken string) error {
	query := `DELETE FROM staged_items WHERE batch_token = $1`

	q := database.QuerierFromContext(ctx, s.pool)

	if _, err := q.Exec(ctx, query, batchToken); err != nil {
		return fmt.Errorf("purge snapshot staging: %w", err)
	}

	return nil
}

func (s *StagingStore) ReleaseSnapshot(ctx context.Context, batchToken string) error {
	query := `UPDATE staged_items SET batch_token = NULL WHERE batch_token = $1`

	q := database.QuerierFromContext(ctx, s.pool)

	if _, err := q.Exec(ctx, query, batchToken); err != nil {
		return fmt.Errorf("release snapshot staging: %w", err)
	}

	return nil
}

func scanStagedItem(row pgx.Row) (*domain.StagedItem, error) {
	var item domain.StagedItem
	var unitPrice string

	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Service,
		&item.Mode,
		&item.Sides,
		&item.Layout,
		&item.Pages,
		&item.Copies,
		&item.ColorPages,
		&item.Location,
		&item.FilePath,
		&unitPrice,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return nil, fmt.Errorf("parse unit price: %w", err)
	}

	return &item, nil
}
