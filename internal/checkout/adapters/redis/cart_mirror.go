// Package redis mirrors cart state into Redis for cheap session reads. The
// durable staging store stays authoritative; every value here can be rebuilt
// from it at any time.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fastcopy/printshop/internal/checkout/domain"
)

// CartMirror stores per-user cart item counts under a TTL. A missing key is a
// cache miss, never an empty cart.
type CartMirror struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartMirror(client *redis.Client, ttl time.Duration) *CartMirror {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CartMirror{client: client, ttl: ttl}
}

func (m *CartMirror) Refresh(ctx context.Context, userID string, items []domain.StagedItem) error {
	if err := m.client.Set(ctx, m.key(userID), len(items), m.ttl).Err(); err != nil {
		return fmt.Errorf("refresh cart mirror: %w", err)
	}
	return nil
}

func (m *CartMirror) Count(ctx context.Context, userID string) (int, bool, error) {
	val, err := m.client.Get(ctx, m.key(userID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read cart mirror: %w", err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		// A corrupt value is treated as a miss; the next refresh rewrites it.
		return 0, false, nil
	}

	return count, true, nil
}

func (m *CartMirror) Invalidate(ctx context.Context, userID string) error {
	if err := m.client.Del(ctx, m.key(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate cart mirror: %w", err)
	}
	return nil
}

func (m *CartMirror) key(userID string) string {
	return fmt.Sprintf("printshop:cart:%s", userID)
}
