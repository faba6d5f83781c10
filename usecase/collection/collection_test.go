package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/internal/infrastructure/docstore"
	"github.com/fastygo/storefront/repository/docrepo"
)

func setup(t *testing.T) *UseCase {
	t.Helper()
	store, err := docstore.Open(docstore.Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return New(docrepo.NewDocumentRepository(store), nil)
}

func TestCRUD(t *testing.T) {
	t.Parallel()
	uc := setup(t)
	ctx := context.Background()

	created, err := uc.Create(ctx, "coupons", map[string]interface{}{"code": "WELCOME", "percent": 10})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id := created.ID()
	if id == "" {
		t.Fatalf("expected generated id, got %+v", created)
	}

	updated, err := uc.Update(ctx, "coupons", id, map[string]interface{}{"percent": 15})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated["code"] != "WELCOME" || updated["percent"] != float64(15) {
		t.Errorf("unexpected document: %+v", updated)
	}

	list, err := uc.List(ctx, "coupons")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one coupon, got %v %v", list, err)
	}

	removed, err := uc.Delete(ctx, "coupons", id)
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v %v", removed, err)
	}
	if _, err := uc.Get(ctx, "coupons", id); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
	if _, err := uc.Update(ctx, "coupons", id, map[string]interface{}{"x": 1}); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound on update, got %v", err)
	}
}

func TestEmptyCollectionIsProvisioned(t *testing.T) {
	t.Parallel()
	uc := setup(t)

	docs, err := uc.List(context.Background(), "hero-slides")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected empty collection, got %+v", docs)
	}
}

func TestUnknownCollectionsRejected(t *testing.T) {
	t.Parallel()
	uc := setup(t)
	ctx := context.Background()

	for _, name := range []string{"products", "orders", "../etc", ""} {
		if _, err := uc.List(ctx, name); !errors.Is(err, domain.ErrUnknownCollection) {
			t.Errorf("%q: expected ErrUnknownCollection, got %v", name, err)
		}
		if _, err := uc.Create(ctx, name, map[string]interface{}{}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
			t.Errorf("%q: expected invalid error, got %v", name, err)
		}
	}
}
