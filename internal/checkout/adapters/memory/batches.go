package memory

import (
	"context"
	"sync"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
)

// BatchRepository is an in-memory batch store for local development and tests.
type BatchRepository struct {
	mu      sync.RWMutex
	batches map[string]domain.OrderBatch
}

func NewBatchRepository() *BatchRepository {
	return &BatchRepository{batches: make(map[string]domain.OrderBatch)}
}

func (r *BatchRepository) Create(_ context.Context, batch domain.OrderBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, other := range r.batches {
		if other.UserID == batch.UserID && other.Active {
			other.Active = false
			r.batches[token] = other
		}
	}
	r.batches[batch.Token] = batch
	return nil
}

func (r *BatchRepository) GetByToken(_ context.Context, token string) (*domain.OrderBatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	batch, ok := r.batches[token]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := batch
	return &copy, nil
}

func (r *BatchRepository) GetActiveByUser(_ context.Context, userID string) (*domain.OrderBatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, batch := range r.batches {
		if batch.UserID == userID && batch.Active {
			copy := batch
			return &copy, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *BatchRepository) GetByGatewayOrderID(_ context.Context, gatewayOrderID string) (*domain.OrderBatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, batch := range r.batches {
		if batch.GatewayOrderID == gatewayOrderID {
			copy := batch
			return &copy, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *BatchRepository) SetGatewayOrderID(_ context.Context, token, gatewayOrderID string) error {
	return r.update(token, func(b *domain.OrderBatch) { b.GatewayOrderID = gatewayOrderID })
}

func (r *BatchRepository) AttachCoupon(_ context.Context, token, couponCode string) error {
	return r.update(token, func(b *domain.OrderBatch) { b.CouponCode = &couponCode })
}

func (r *BatchRepository) Deactivate(_ context.Context, token string) error {
	return r.update(token, func(b *domain.OrderBatch) { b.Active = false })
}

func (r *BatchRepository) update(token string, fn func(*domain.OrderBatch)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[token]
	if !ok {
		return ports.ErrNotFound
	}
	fn(&batch)
	r.batches[token] = batch
	return nil
}
