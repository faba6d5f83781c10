// Package keypool manages the license keys attached to digital products.
//
// Every pool change is a single serialized mutation of the product document,
// so concurrent allocations for one product can never hand out the same key.
// Used keys are permanent: there is no release path back to available.
package keypool

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
)

type Manager struct {
	products repository.ProductRepository
	logger   *zap.Logger
	now      func() time.Time
}

func New(products repository.ProductRepository, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		products: products,
		logger:   logger,
		now:      time.Now,
	}
}

// AllocateOne marks the first available key of the pool as used by the order.
// Returns domain.ErrNoKeyAvailable when the pool is exhausted.
func (m *Manager) AllocateOne(ctx context.Context, productID, orderID string) (*domain.Key, error) {
	if orderID == "" {
		return nil, domain.Invalid("claimant order id is required")
	}

	var allocated domain.Key
	_, err := m.products.Mutate(ctx, productID, func(p *domain.Product) (map[string]interface{}, error) {
		if !p.IsDigitalProduct {
			return nil, domain.Invalid("product %s is not digital", p.ID)
		}
		idx := -1
		for i, k := range p.DigitalKeys {
			if k.IsAvailable() {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, domain.ErrNoKeyAvailable
		}

		usedAt := m.now().UTC()
		keys := append([]domain.Key(nil), p.DigitalKeys...)
		keys[idx].Status = domain.KeyUsed
		keys[idx].UsedAt = &usedAt
		keys[idx].UsedBy = orderID
		allocated = keys[idx]

		return poolFields(keys), nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoKeyAvailable) {
			m.logger.Warn("key pool exhausted",
				zap.String("product_id", productID),
				zap.String("order_id", orderID))
		}
		return nil, err
	}

	m.logger.Info("key allocated",
		zap.String("product_id", productID),
		zap.String("order_id", orderID),
		zap.String("key_id", allocated.ID))
	return &allocated, nil
}

// ClaimedBy lists keys already used by the order, in pool order.
func (m *Manager) ClaimedBy(ctx context.Context, productID, orderID string) ([]domain.Key, error) {
	product, err := m.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	var out []domain.Key
	for _, k := range product.DigitalKeys {
		if k.IsUsed() && k.UsedBy == orderID {
			out = append(out, k)
		}
	}
	return out, nil
}

// AddKeys appends new available keys. Codes are trimmed; blank codes and
// codes already present in the pool are rejected.
func (m *Manager) AddKeys(ctx context.Context, productID string, codes []string) ([]domain.Key, error) {
	cleaned := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, domain.Invalid("key code must not be empty")
		}
		if seen[c] {
			return nil, domain.Invalid("duplicate key code %q", c)
		}
		seen[c] = true
		cleaned = append(cleaned, c)
	}
	if len(cleaned) == 0 {
		return nil, domain.Invalid("at least one key code is required")
	}

	var added []domain.Key
	_, err := m.products.Mutate(ctx, productID, func(p *domain.Product) (map[string]interface{}, error) {
		if !p.IsDigitalProduct {
			return nil, domain.Invalid("product %s is not digital", p.ID)
		}
		for _, k := range p.DigitalKeys {
			if seen[k.Code] {
				return nil, domain.Invalid("key code %q already in pool", k.Code)
			}
		}

		added = make([]domain.Key, 0, len(cleaned))
		for _, c := range cleaned {
			added = append(added, domain.Key{
				ID:     uuid.NewString(),
				Code:   c,
				Status: domain.KeyAvailable,
			})
		}
		keys := append(append([]domain.Key(nil), p.DigitalKeys...), added...)
		return poolFields(keys), nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("keys added", zap.String("product_id", productID), zap.Int("count", len(added)))
	return added, nil
}

// DeleteAvailable removes a key that was never handed out. It reports false
// when the key does not exist and domain.ErrKeyInUse when it is used.
func (m *Manager) DeleteAvailable(ctx context.Context, productID, keyID string) (bool, error) {
	removed := false
	_, err := m.products.Mutate(ctx, productID, func(p *domain.Product) (map[string]interface{}, error) {
		idx := -1
		for i, k := range p.DigitalKeys {
			if k.ID == keyID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil
		}
		if p.DigitalKeys[idx].IsUsed() {
			return nil, domain.ErrKeyInUse
		}

		keys := make([]domain.Key, 0, len(p.DigitalKeys)-1)
		keys = append(keys, p.DigitalKeys[:idx]...)
		keys = append(keys, p.DigitalKeys[idx+1:]...)
		removed = true
		return poolFields(keys), nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		m.logger.Info("key deleted", zap.String("product_id", productID), zap.String("key_id", keyID))
	}
	return removed, nil
}

// Keys returns the whole pool in stored order.
func (m *Manager) Keys(ctx context.Context, productID string) ([]domain.Key, error) {
	product, err := m.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return product.DigitalKeys, nil
}

// Summary counts keys per status.
func (m *Manager) Summary(ctx context.Context, productID string) (*domain.KeyPoolSummary, error) {
	product, err := m.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	summary := &domain.KeyPoolSummary{ProductID: product.ID, Total: len(product.DigitalKeys)}
	for _, k := range product.DigitalKeys {
		switch k.Status {
		case domain.KeyAvailable:
			summary.Available++
		case domain.KeyReserved:
			summary.Reserved++
		case domain.KeyUsed:
			summary.Used++
		}
	}
	return summary, nil
}

// poolFields writes back the whole pool and keeps stock equal to the number
// of allocatable keys.
func poolFields(keys []domain.Key) map[string]interface{} {
	available := 0
	for _, k := range keys {
		if k.IsAvailable() {
			available++
		}
	}
	return map[string]interface{}{
		"digitalKeys": keys,
		"stock":       available,
	}
}
