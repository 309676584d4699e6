package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
)

// OrderRepository is an in-memory order store for local development and tests.
type OrderRepository struct {
	mu     sync.RWMutex
	nextID int64
	orders map[int64]domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[int64]domain.Order)}
}

func (r *OrderRepository) CreateDraft(_ context.Context, order domain.Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	order.ID = r.nextID
	order.Code = ""
	r.orders[order.ID] = order
	return order.ID, nil
}

func (r *OrderRepository) AssignCode(_ context.Context, id int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return "", ports.ErrNotFound
	}
	if order.Code == "" {
		order.Code = domain.FormatCode(id)
		r.orders[id] = order
	}
	return order.Code, nil
}

func (r *OrderRepository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copy := order
	return &copy, nil
}

func (r *OrderRepository) GetByCode(_ context.Context, code string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, order := range r.orders {
		if order.Code == code {
			copy := order
			return &copy, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderRepository) ListByGatewayOrderID(_ context.Context, gatewayOrderID string) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.GatewayOrderID == gatewayOrderID }), nil
}

func (r *OrderRepository) filter(keep func(domain.Order) bool) []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Order
	for _, order := range r.orders {
		if keep(order) {
			result = append(result, order)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (r *OrderRepository) SetPaymentOutcome(_ context.Context, id int64, outcome ports.PaymentOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return ports.ErrNotFound
	}
	order.PaymentStatus = outcome.Payment
	order.FulfillmentStatus = outcome.Fulfillment
	order.FilePath = outcome.FilePath
	order.Incomplete = outcome.Incomplete
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order
	return nil
}

func (r *OrderRepository) ListStalePendingGatewayIDs(_ context.Context, olderThan time.Time, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, order := range r.orders {
		if order.PaymentStatus != domain.PaymentPending || order.GatewayOrderID == "" {
			continue
		}
		if !order.CreatedAt.Before(olderThan) {
			continue
		}
		if _, ok := seen[order.GatewayOrderID]; ok {
			continue
		}
		seen[order.GatewayOrderID] = struct{}{}
		ids = append(ids, order.GatewayOrderID)
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}
