package repository

import (
	"context"

	"github.com/fastygo/storefront/domain"
)

// OrderMutation computes the fields to merge into an order while the orders
// collection is held exclusively. A nil result leaves it untouched.
type OrderMutation func(current *domain.Order) (map[string]interface{}, error)

type OrderFilter struct {
	UserID string
	Status domain.OrderStatus
}

type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (*domain.Order, error)
	Mutate(ctx context.Context, id string, fn OrderMutation) (*domain.Order, error)
}
