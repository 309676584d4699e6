package queries

import (
	"context"
	"errors"
	"strings"

	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
)

// GetOrderQuery represents a request to retrieve an order by its public code.
type GetOrderQuery struct {
	Code string
}

// Validate ensures the query has valid parameters.
func (q GetOrderQuery) Validate() error {
	if strings.TrimSpace(q.Code) == "" {
		return errors.New("order code is required")
	}
	return nil
}

// GetOrderHandler executes GetOrderQuery and returns the order if found.
type GetOrderHandler struct {
	repo ports.OrderRepository
}

// NewGetOrderHandler constructs a GetOrderHandler.
func NewGetOrderHandler(repo ports.OrderRepository) *GetOrderHandler {
	return &GetOrderHandler{repo: repo}
}

// Handle executes the query and retrieves the order.
func (h *GetOrderHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return h.repo.GetByCode(ctx, query.Code)
}
