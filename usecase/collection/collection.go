// Package collection exposes plain CRUD for auxiliary collections that carry
// no business rules of their own.
package collection

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/internal/infrastructure/docstore"
	"github.com/fastygo/storefront/repository"
)

// Names of the collections served here. Products and orders have their own
// use cases and are not reachable through this one.
var Names = []string{"users", "coupons", "currencies", "settings", "hero-slides"}

type UseCase struct {
	docs    repository.DocumentRepository
	allowed map[string]bool
	logger  *zap.Logger
}

func New(docs repository.DocumentRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]bool, len(Names))
	for _, n := range Names {
		allowed[n] = true
	}
	return &UseCase{
		docs:    docs,
		allowed: allowed,
		logger:  logger,
	}
}

func (uc *UseCase) List(ctx context.Context, name string) ([]docstore.Document, error) {
	if err := uc.check(name); err != nil {
		return nil, err
	}
	return uc.docs.List(ctx, name)
}

func (uc *UseCase) Get(ctx context.Context, name, id string) (docstore.Document, error) {
	if err := uc.check(name); err != nil {
		return nil, err
	}
	return uc.docs.Get(ctx, name, id)
}

func (uc *UseCase) Create(ctx context.Context, name string, fields map[string]interface{}) (docstore.Document, error) {
	if err := uc.check(name); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, domain.ErrInvalidPayload
	}
	doc, err := uc.docs.Create(ctx, name, fields)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("document created", zap.String("collection", name), zap.String("id", doc.ID()))
	return doc, nil
}

func (uc *UseCase) Update(ctx context.Context, name, id string, fields map[string]interface{}) (docstore.Document, error) {
	if err := uc.check(name); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, domain.ErrInvalidPayload
	}
	return uc.docs.Update(ctx, name, id, fields)
}

func (uc *UseCase) Delete(ctx context.Context, name, id string) (bool, error) {
	if err := uc.check(name); err != nil {
		return false, err
	}
	removed, err := uc.docs.Delete(ctx, name, id)
	if err != nil {
		return false, err
	}
	if removed {
		uc.logger.Info("document deleted", zap.String("collection", name), zap.String("id", id))
	}
	return removed, nil
}

func (uc *UseCase) check(name string) error {
	if !uc.allowed[name] {
		return domain.WrapError(domain.ErrCodeInvalid, "unknown collection "+name, domain.ErrUnknownCollection)
	}
	return nil
}
