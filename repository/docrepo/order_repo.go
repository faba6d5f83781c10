package docrepo

import (
	"context"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/internal/infrastructure/docstore"
	"github.com/fastygo/storefront/repository"
)

type orderRepository struct {
	store *docstore.Store
}

// NewOrderRepository returns an orders repository backed by the document store.
func NewOrderRepository(store *docstore.Store) repository.OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	doc, err := r.store.GetByID(ctx, collectionOrders, id)
	if err != nil {
		return nil, storageErr("load order", err)
	}
	if doc == nil {
		return nil, domain.ErrOrderNotFound
	}
	return decodeOne[domain.Order](doc)
}

func (r *orderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	docs, err := r.store.Find(ctx, collectionOrders, func(d docstore.Document) bool {
		if filter.UserID != "" && d["userId"] != filter.UserID {
			return false
		}
		if filter.Status != "" && d["status"] != string(filter.Status) {
			return false
		}
		return true
	})
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	return decodeList[domain.Order](docs)
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, domain.ErrInvalidPayload
	}
	doc, err := r.store.Create(ctx, collectionOrders, order)
	if err != nil {
		return nil, storageErr("create order", err)
	}
	return decodeOne[domain.Order](doc)
}

func (r *orderRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*domain.Order, error) {
	doc, err := r.store.Update(ctx, collectionOrders, id, fields)
	if err != nil {
		return nil, storageErr("update order", err)
	}
	if doc == nil {
		return nil, domain.ErrOrderNotFound
	}
	return decodeOne[domain.Order](doc)
}

func (r *orderRepository) Mutate(ctx context.Context, id string, fn repository.OrderMutation) (*domain.Order, error) {
	doc, err := r.store.Mutate(ctx, collectionOrders, id, func(current docstore.Document) (docstore.Document, error) {
		order, err := decodeOne[domain.Order](current)
		if err != nil {
			return nil, err
		}
		fields, err := fn(order)
		if err != nil || fields == nil {
			return nil, err
		}
		return docstore.Document(fields), nil
	})
	if err != nil {
		return nil, storageErr("mutate order", err)
	}
	if doc == nil {
		return nil, domain.ErrOrderNotFound
	}
	return decodeOne[domain.Order](doc)
}
