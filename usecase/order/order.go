package order

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
)

type ItemInput struct {
	ProductID string
	Quantity  int
}

type CreateInput struct {
	UserID        string
	CustomerEmail string
	CustomerName  string
	Currency      string
	Items         []ItemInput
}

type UseCase struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

func New(orders repository.OrderRepository, products repository.ProductRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		orders:   orders,
		products: products,
		logger:   logger,
	}
}

// Create snapshots name, price and digital flag of every product into the
// order so later catalogue edits do not change what was bought.
func (uc *UseCase) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, domain.Invalid("order needs at least one item")
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	total := 0.0
	currency := strings.TrimSpace(in.Currency)
	for _, it := range in.Items {
		if it.ProductID == "" {
			return nil, domain.Invalid("item product id is required")
		}
		if it.Quantity < 1 {
			return nil, domain.Invalid("quantity of %s must be at least 1", it.ProductID)
		}
		p, err := uc.products.GetByID(ctx, it.ProductID)
		if err != nil {
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				return nil, domain.Invalid("unknown product %s", it.ProductID)
			}
			return nil, err
		}
		if currency == "" {
			currency = p.Currency
		}
		items = append(items, domain.OrderItem{
			ProductID:        p.ID,
			Name:             p.Name,
			Quantity:         it.Quantity,
			IsDigitalProduct: p.IsDigitalProduct,
			Price:            p.Price,
		})
		total += p.Price * float64(it.Quantity)
	}

	created, err := uc.orders.Create(ctx, &domain.Order{
		UserID:        in.UserID,
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		Status:        domain.OrderPending,
		Items:         items,
		Total:         total,
		Currency:      currency,
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.Int("items", len(items)),
		zap.Float64("total", total))
	return created, nil
}

func (uc *UseCase) Get(ctx context.Context, id string) (*domain.Order, error) {
	return uc.orders.GetByID(ctx, id)
}

// GetForUser hides orders of other users behind NOT_FOUND.
func (uc *UseCase) GetForUser(ctx context.Context, id, userID string) (*domain.Order, error) {
	o, err := uc.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (uc *UseCase) ListByUser(ctx context.Context, userID string, status domain.OrderStatus) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return uc.orders.List(ctx, repository.OrderFilter{UserID: userID, Status: status})
}
