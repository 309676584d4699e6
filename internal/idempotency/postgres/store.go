package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastcopy/printshop/internal/checkout/ports"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Claim inserts a pending row for the key. The primary key makes the insert
// the arbiter: exactly one concurrent request wins, everyone else reads the
// winner's record.
func (s *Store) Claim(ctx context.Context, key, batchToken string) (*ports.StoredResponse, bool, error) {
	insert := `
		INSERT INTO idempotency_keys (key, status_code, body, batch_token)
		VALUES ($1, 0, ''::bytea, $2)
		ON CONFLICT (key) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, insert, key, batchToken)
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, true, nil
	}

	query := `
		SELECT status_code, body, batch_token
		FROM idempotency_keys
		WHERE key = $1
	`

	var resp ports.StoredResponse
	err = s.pool.QueryRow(ctx, query, key).Scan(
		&resp.StatusCode,
		&resp.Body,
		&resp.BatchToken,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The row was released between our insert and read. Report the
			// key as free so the caller retries the claim.
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select idempotency key: %w", err)
	}

	return &resp, false, nil
}

func (s *Store) Complete(ctx context.Context, key string, response ports.StoredResponse) error {
	query := `
		UPDATE idempotency_keys
		SET status_code = $2, body = $3, batch_token = $4
		WHERE key = $1
	`

	_, err := s.pool.Exec(ctx, query, key, response.StatusCode, response.Body, response.BatchToken)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}

	return nil
}

func (s *Store) Release(ctx context.Context, key string) error {
	query := `DELETE FROM idempotency_keys WHERE key = $1`

	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}

	return nil
}
