package product

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
)

// Changes is a partial product update. Nil fields are left as stored.
// The key pool is not part of it; keys change only through the key pool.
type Changes struct {
	Name             *string
	Description      *string
	Price            *float64
	Currency         *string
	Stock            *int
	IsDigitalProduct *bool
	Images           []string
	Metadata         map[string]string
}

type UseCase struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

func New(products repository.ProductRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		products: products,
		logger:   logger,
	}
}

func (uc *UseCase) List(ctx context.Context) ([]domain.Product, error) {
	return uc.products.List(ctx)
}

func (uc *UseCase) Get(ctx context.Context, id string) (*domain.Product, error) {
	return uc.products.GetByID(ctx, id)
}

// Create validates and stores a new product. Digital products start with an
// empty pool and zero stock.
func (uc *UseCase) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if p == nil {
		return nil, domain.ErrInvalidPayload
	}
	p.Name = strings.TrimSpace(p.Name)
	if err := validate(p.Name, p.Price, p.Stock); err != nil {
		return nil, err
	}

	p.DigitalKeys = nil
	if p.IsDigitalProduct {
		p.Stock = 0
	}

	created, err := uc.products.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("product created",
		zap.String("product_id", created.ID),
		zap.Bool("digital", created.IsDigitalProduct))
	return created, nil
}

// Update applies changes in one serialized mutation. Stock of a digital
// product always follows its available keys and cannot be set directly.
func (uc *UseCase) Update(ctx context.Context, id string, c Changes) (*domain.Product, error) {
	return uc.products.Mutate(ctx, id, func(cur *domain.Product) (map[string]interface{}, error) {
		next := *cur
		fields := map[string]interface{}{}

		if c.Name != nil {
			next.Name = strings.TrimSpace(*c.Name)
			fields["name"] = next.Name
		}
		if c.Description != nil {
			fields["description"] = *c.Description
		}
		if c.Price != nil {
			next.Price = *c.Price
			fields["price"] = next.Price
		}
		if c.Currency != nil {
			fields["currency"] = *c.Currency
		}
		if c.IsDigitalProduct != nil {
			if cur.IsDigitalProduct && !*c.IsDigitalProduct && len(cur.DigitalKeys) > 0 {
				return nil, domain.ErrProductHasKeyPool
			}
			next.IsDigitalProduct = *c.IsDigitalProduct
			fields["isDigitalProduct"] = next.IsDigitalProduct
		}
		if c.Stock != nil {
			if next.IsDigitalProduct {
				return nil, domain.Invalid("stock of a digital product follows its key pool")
			}
			next.Stock = *c.Stock
			fields["stock"] = next.Stock
		}
		if c.Images != nil {
			fields["images"] = c.Images
		}
		if c.Metadata != nil {
			fields["metadata"] = c.Metadata
		}

		if err := validate(next.Name, next.Price, next.Stock); err != nil {
			return nil, err
		}
		if next.IsDigitalProduct {
			fields["stock"] = cur.AvailableKeys()
		}
		if len(fields) == 0 {
			return nil, nil
		}
		return fields, nil
	})
}

// Delete removes a product unless one of its keys was already handed out.
// It reports false when the product does not exist.
func (uc *UseCase) Delete(ctx context.Context, id string) (bool, error) {
	current, err := uc.products.GetByID(ctx, id)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return false, nil
		}
		return false, err
	}
	if current.HasUsedKeys() {
		return false, domain.ErrProductHasUsedKeys
	}

	removed, err := uc.products.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		uc.logger.Info("product deleted", zap.String("product_id", id))
	}
	return removed, nil
}

func validate(name string, price float64, stock int) error {
	if name == "" {
		return domain.Invalid("product name is required")
	}
	if price < 0 {
		return domain.Invalid("price must not be negative")
	}
	if stock < 0 {
		return domain.Invalid("stock must not be negative")
	}
	return nil
}
