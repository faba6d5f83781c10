package docrepo

import (
	"errors"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/internal/infrastructure/docstore"
)

const (
	collectionProducts = "products"
	collectionOrders   = "orders"
)

// storageErr classifies store failures for transport layers.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}
	if docstore.IsCorrupt(err) {
		return domain.WrapError(domain.ErrCodeInternal, op+": corrupt store", err)
	}
	return domain.WrapError(domain.ErrCodeInternal, op, err)
}

func decodeList[T any](docs []docstore.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := docstore.Decode(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeOne[T any](doc docstore.Document) (*T, error) {
	var v T
	if err := docstore.Decode(doc, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
