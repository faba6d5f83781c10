package repository

import (
	"context"

	"github.com/fastygo/storefront/domain"
)

// ProductMutation computes the fields to merge into a product while the
// products collection is held exclusively. A nil result leaves it untouched.
type ProductMutation func(current *domain.Product) (map[string]interface{}, error)

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (*domain.Product, error)
	Mutate(ctx context.Context, id string, fn ProductMutation) (*domain.Product, error)
	Delete(ctx context.Context, id string) (bool, error)
}
