package repository

import (
	"context"

	"github.com/fastygo/storefront/internal/infrastructure/docstore"
)

// DocumentRepository is the untyped CRUD surface used by collections that
// need no special handling (users, coupons, currencies, settings, hero slides).
type DocumentRepository interface {
	List(ctx context.Context, collection string) ([]docstore.Document, error)
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	Create(ctx context.Context, collection string, fields map[string]interface{}) (docstore.Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) (docstore.Document, error)
	Delete(ctx context.Context, collection, id string) (bool, error)
}
