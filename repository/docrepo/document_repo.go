package docrepo

import (
	"context"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/internal/infrastructure/docstore"
	"github.com/fastygo/storefront/repository"
)

type documentRepository struct {
	store *docstore.Store
}

// NewDocumentRepository exposes the raw collection contract.
func NewDocumentRepository(store *docstore.Store) repository.DocumentRepository {
	return &documentRepository{store: store}
}

func (r *documentRepository) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	docs, err := r.store.GetAll(ctx, collection)
	return docs, storageErr("list "+collection, err)
}

func (r *documentRepository) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	doc, err := r.store.GetByID(ctx, collection, id)
	if err != nil {
		return nil, storageErr("load "+collection, err)
	}
	if doc == nil {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (r *documentRepository) Create(ctx context.Context, collection string, fields map[string]interface{}) (docstore.Document, error) {
	doc, err := r.store.Create(ctx, collection, fields)
	return doc, storageErr("create "+collection, err)
}

func (r *documentRepository) Update(ctx context.Context, collection, id string, fields map[string]interface{}) (docstore.Document, error) {
	doc, err := r.store.Update(ctx, collection, id, fields)
	if err != nil {
		return nil, storageErr("update "+collection, err)
	}
	if doc == nil {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (r *documentRepository) Delete(ctx context.Context, collection, id string) (bool, error) {
	removed, err := r.store.Delete(ctx, collection, id)
	return removed, storageErr("delete "+collection, err)
}
