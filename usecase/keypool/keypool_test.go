package keypool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/internal/infrastructure/docstore"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/repository/docrepo"
)

func setup(t *testing.T) (*Manager, repository.ProductRepository) {
	t.Helper()
	store, err := docstore.Open(docstore.Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	products := docrepo.NewProductRepository(store)
	return New(products, nil), products
}

func digitalProduct(t *testing.T, m *Manager, products repository.ProductRepository, codes ...string) *domain.Product {
	t.Helper()
	ctx := context.Background()
	p, err := products.Create(ctx, &domain.Product{Name: "Game", Price: 10, IsDigitalProduct: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(codes) > 0 {
		if _, err := m.AddKeys(ctx, p.ID, codes); err != nil {
			t.Fatalf("AddKeys failed: %v", err)
		}
	}
	return p
}

func TestAllocateOneTakesFirstAvailable(t *testing.T) {
	t.Parallel()
	m, products := setup(t)
	ctx := context.Background()
	p := digitalProduct(t, m, products, "k1", "k2")

	key, err := m.AllocateOne(ctx, p.ID, "order-1")
	if err != nil {
		t.Fatalf("AllocateOne failed: %v", err)
	}
	if key.Code != "k1" {
		t.Errorf("expected k1, got %s", key.Code)
	}
	if key.UsedBy != "order-1" || key.UsedAt == nil || key.Status != domain.KeyUsed {
		t.Errorf("unexpected key state: %+v", key)
	}

	stored, _ := products.GetByID(ctx, p.ID)
	if stored.DigitalKeys[0].Status != domain.KeyUsed || stored.DigitalKeys[1].Status != domain.KeyAvailable {
		t.Errorf("unexpected pool: %+v", stored.DigitalKeys)
	}
	if stored.Stock != 1 {
		t.Errorf("expected stock 1, got %d", stored.Stock)
	}
}

func TestAllocateOneExhausted(t *testing.T) {
	t.Parallel()
	m, products := setup(t)
	ctx := context.Background()
	p := digitalProduct(t, m, products)

	if _, err := m.AllocateOne(ctx, p.ID, "order-1"); !errors.Is(err, domain.ErrNoKeyAvailable) {
		t.Fatalf("expected ErrNoKeyAvailable, got %v", err)
	}
}

func TestAllocateOneRejectsPhysicalProduct(t *testing.T) {
	t.Parallel()
	m, products := setup(t)
	ctx := context.Background()
	p, _ := products.Create(ctx, &domain.Product{Name: "Mug", Stock: 3})

	if _, err := m.AllocateOne(ctx, p.ID, "order-1"); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestConcurrentAllocationNeverSharesAKey(t *testing.T) {
	t.Parallel()
	m, products := setup(t)
	ctx := context.Background()

	codes := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	p := digitalProduct(t, m, products, codes...)

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		got       = map[string]string{}
		exhausted int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			orderID := "order-" + string(rune('A'+i))
			key, err := m.AllocateOne(ctx, p.ID, orderID)
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, domain.ErrNoKeyAvailable) {
				exhausted++
				return
			}
			if err != nil {
				t.Errorf("AllocateOne failed: %v", err)
				return
			}
			if prev, dup := got[key.ID]; dup {
				t.Errorf("key %s handed to %s and %s", key.ID, prev, orderID)
			}
			got[key.ID] = orderID
		}(i)
	}
	wg.Wait()

	if len(got) != len(codes) {
		t.Errorf("expected %d allocations, got %d", len(codes), len(got))
	}
	if exhausted != callers-len(codes) {
		t.Errorf("expected %d exhausted callers, got %d", callers-len(codes), exhausted)
	}

	stored, _ := products.GetByID(ctx, p.ID)
	for _, k := range stored.DigitalKeys {
		if k.Status != domain.KeyUsed || got[k.ID] != k.UsedBy {
			t.Errorf("pool and allocations disagree on %+v", k)
		}
	}
	if stored.Stock != 0 {
		t.Errorf("expected stock 0, got %d", stored.Stock)
	}
}

func TestDeleteAvailable(t *testing.T) {
	t.Parallel()
	m, products := setup(t)
	ctx := context.Background()
	p := digitalProduct(t, m, products, "k1", "k2")

	used, err := m.AllocateOne(ctx, p.ID, "order-1")
	if err != nil {
		t.Fatalf("AllocateOne failed: %v", err)
	}

	if _, err := m.DeleteAvailable(ctx, p.ID, used.ID); !errors.Is(err, domain.ErrKeyInUse) {
		t.Fatalf("expected ErrKeyInUse, got %v", err)
	}

	keys, _ := m.Keys(ctx, p.ID)
	removed, err := m.DeleteAvailable(ctx, p.ID, keys[1].ID)
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v %v", removed, err)
	}

	removed, err = m.DeleteAvailable(ctx, p.ID, "missing")
	if err != nil || removed {
		t.Fatalf("expected no removal for unknown key, got %v %v", removed, err)
	}

	stored, _ := products.GetByID(ctx, p.ID)
	if len(stored.DigitalKeys) != 1 || stored.DigitalKeys[0].ID != used.ID {
		t.Errorf("used key must survive deletion attempts: %+v", stored.DigitalKeys)
	}
}

func TestDeleteAvailableAllowsReservedKeys(t *testing.T) {
	t.Parallel()
	m, products := setup(t)
	ctx := context.Background()
	p := digitalProduct(t, m, products, "k1", "k2")

	_, err := products.Mutate(ctx, p.ID, func(cur *domain.Product) (map[string]interface{}, error) {
		keys := append([]domain.Key(nil), cur.DigitalKeys...)
		keys[0].Status = domain.KeyReserved
		return poolFields(keys), nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	keys, _ := m.Keys(ctx, p.ID)
	removed, err := m.DeleteAvailable(ctx, p.ID, keys[0].ID)
	if err != nil || !removed {
		t.Fatalf("expected reserved key to be removable, got %v %v", removed, err)
	}

	stored, _ := products.GetByID(ctx, p.ID)
	if len(stored.DigitalKeys) != 1 || stored.DigitalKeys[0].Code != "k2" || stored.Stock != 1 {
		t.Errorf("unexpected pool after delete: %+v", stored)
	}
}

func TestAddKeysValidation(t *testing.T) {
	t.Parallel()
	m, products := setup(t)
	ctx := context.Background()
	p := digitalProduct(t, m, products, "existing")

	cases := []struct {
		name  string
		codes []string
	}{
		{"empty list", nil},
		{"blank code", []string{"ok", "  "}},
		{"duplicate in request", []string{"x", "x"}},
		{"duplicate in pool", []string{"existing"}},
	}
	for _, tc := range cases {
		if _, err := m.AddKeys(ctx, p.ID, tc.codes); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
			t.Errorf("%s: expected invalid error, got %v", tc.name, err)
		}
	}

	summary, _ := m.Summary(ctx, p.ID)
	if summary.Total != 1 || summary.Available != 1 {
		t.Errorf("rejected requests must not change the pool: %+v", summary)
	}
}

func TestClaimedBy(t *testing.T) {
	t.Parallel()
	m, products := setup(t)
	ctx := context.Background()
	p := digitalProduct(t, m, products, "k1", "k2", "k3")

	_, _ = m.AllocateOne(ctx, p.ID, "order-1")
	_, _ = m.AllocateOne(ctx, p.ID, "order-2")
	_, _ = m.AllocateOne(ctx, p.ID, "order-1")

	claimed, err := m.ClaimedBy(ctx, p.ID, "order-1")
	if err != nil {
		t.Fatalf("ClaimedBy failed: %v", err)
	}
	if len(claimed) != 2 || claimed[0].Code != "k1" || claimed[1].Code != "k3" {
		t.Errorf("unexpected claimed keys: %+v", claimed)
	}

	summary, _ := m.Summary(ctx, p.ID)
	if summary.Used != 3 || summary.Available != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}
