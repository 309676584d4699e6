package app

import (
	"context"
	"fmt"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/pricing"
)

// AddCartItemInput stages one print job into the user's cart.
type AddCartItemInput struct {
	Item domain.StagedItem
	Tier pricing.Tier
}

// AddCartItem validates the job, prices it against the active rate table and
// stages it durably.
func (s *Service) AddCartItem(ctx context.Context, input AddCartItemInput) (*domain.StagedItem, error) {
	if err := input.Item.Validate(); err != nil {
		return nil, err
	}

	table, err := s.rates.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rate table: %w", err)
	}
	input.Item.UnitPrice = pricing.Price(input.Item.Job(), table.Card(input.Tier))

	item, err := s.staging.Add(ctx, input.Item)
	if err != nil {
		return nil, fmt.Errorf("stage cart item: %w", err)
	}

	s.refreshMirror(ctx, item.UserID)
	return &item, nil
}

// ListCart reads the durable store and rewrites the session mirror on the
// way out. The mirror is never consulted here: multi-tab usage means it can
// lag, and the durable store is the source of truth.
func (s *Service) ListCart(ctx context.Context, userID string) ([]domain.StagedItem, error) {
	items, err := s.staging.ListCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.mirror.Refresh(ctx, userID, items); err != nil {
		s.logger.WarnContext(ctx, "cart mirror refresh failed", "user_id", userID, "error", err)
	}
	return items, nil
}

// CartCount answers the fast UI badge. It serves the mirror when present and
// falls back to a durable read (which repopulates the mirror).
func (s *Service) CartCount(ctx context.Context, userID string) (int, error) {
	if count, ok, err := s.mirror.Count(ctx, userID); err == nil && ok {
		return count, nil
	} else if err != nil {
		s.logger.WarnContext(ctx, "cart mirror read failed", "user_id", userID, "error", err)
	}

	items, err := s.ListCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// RemoveCartItem deletes one staged item. Items belong to exactly one user;
// the store enforces ownership on the delete itself.
func (s *Service) RemoveCartItem(ctx context.Context, userID string, itemID int64) error {
	if err := s.staging.Remove(ctx, userID, itemID); err != nil {
		return err
	}
	s.refreshMirror(ctx, userID)
	return nil
}

// ClearCart empties the user's cart staging.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if err := s.staging.ClearCart(ctx, userID); err != nil {
		return err
	}
	if err := s.mirror.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "cart mirror invalidate failed", "user_id", userID, "error", err)
	}
	return nil
}

func (s *Service) refreshMirror(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	items, err := s.staging.ListCart(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "cart reread for mirror failed", "user_id", userID, "error", err)
		return
	}
	if err := s.mirror.Refresh(ctx, userID, items); err != nil {
		s.logger.WarnContext(ctx, "cart mirror refresh failed", "user_id", userID, "error", err)
	}
}

var _ ports.CartMirror = (noopMirror{})

// noopMirror stands in when no Redis is configured.
type noopMirror struct{}

func (noopMirror) Refresh(context.Context, string, []domain.StagedItem) error { return nil }
func (noopMirror) Count(context.Context, string) (int, bool, error)           { return 0, false, nil }
func (noopMirror) Invalidate(context.Context, string) error                   { return nil }

// NewNoopMirror returns a mirror that never hits.
func NewNoopMirror() ports.CartMirror { return noopMirror{} }
