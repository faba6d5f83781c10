package docrepo

import (
	"context"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/internal/infrastructure/docstore"
	"github.com/fastygo/storefront/repository"
)

type productRepository struct {
	store *docstore.Store
}

// NewProductRepository returns a products repository backed by the document store.
func NewProductRepository(store *docstore.Store) repository.ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	doc, err := r.store.GetByID(ctx, collectionProducts, id)
	if err != nil {
		return nil, storageErr("load product", err)
	}
	if doc == nil {
		return nil, domain.ErrProductNotFound
	}
	return decodeOne[domain.Product](doc)
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.store.GetAll(ctx, collectionProducts)
	if err != nil {
		return nil, storageErr("list products", err)
	}
	return decodeList[domain.Product](docs)
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product == nil {
		return nil, domain.ErrInvalidPayload
	}
	doc, err := r.store.Create(ctx, collectionProducts, product)
	if err != nil {
		return nil, storageErr("create product", err)
	}
	return decodeOne[domain.Product](doc)
}

func (r *productRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (*domain.Product, error) {
	doc, err := r.store.Update(ctx, collectionProducts, id, fields)
	if err != nil {
		return nil, storageErr("update product", err)
	}
	if doc == nil {
		return nil, domain.ErrProductNotFound
	}
	return decodeOne[domain.Product](doc)
}

func (r *productRepository) Mutate(ctx context.Context, id string, fn repository.ProductMutation) (*domain.Product, error) {
	doc, err := r.store.Mutate(ctx, collectionProducts, id, func(current docstore.Document) (docstore.Document, error) {
		product, err := decodeOne[domain.Product](current)
		if err != nil {
			return nil, err
		}
		fields, err := fn(product)
		if err != nil || fields == nil {
			return nil, err
		}
		return docstore.Document(fields), nil
	})
	if err != nil {
		return nil, storageErr("mutate product", err)
	}
	if doc == nil {
		return nil, domain.ErrProductNotFound
	}
	return decodeOne[domain.Product](doc)
}

func (r *productRepository) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := r.store.Delete(ctx, collectionProducts, id)
	if err != nil {
		return false, storageErr("delete product", err)
	}
	return removed, nil
}
