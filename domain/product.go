package domain

import "time"

// KeyStatus is the lifecycle state of a license key inside a product pool.
type KeyStatus string

const (
	KeyAvailable KeyStatus = "available"
	KeyReserved  KeyStatus = "reserved"
	KeyUsed      KeyStatus = "used"
)

// Key is one allocatable license code. Once used, UsedBy is fixed forever.
type Key struct {
	ID     string     `json:"id"`
	Code   string     `json:"code"`
	Status KeyStatus  `json:"status"`
	UsedAt *time.Time `json:"usedAt,omitempty"`
	UsedBy string     `json:"usedBy,omitempty"`
}

func (k Key) IsAvailable() bool { return k.Status == KeyAvailable }
func (k Key) IsUsed() bool      { return k.Status == KeyUsed }

// Product is a catalogue entry stored in the "products" collection.
type Product struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Price            float64           `json:"price"`
	Currency         string            `json:"currency,omitempty"`
	Stock            int               `json:"stock"`
	IsDigitalProduct bool              `json:"isDigitalProduct"`
	DigitalKeys      []Key             `json:"digitalKeys,omitempty"`
	Images           []string          `json:"images,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// AvailableKeys counts keys that can still be allocated.
func (p *Product) AvailableKeys() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, k := range p.DigitalKeys {
		if k.IsAvailable() {
			n++
		}
	}
	return n
}

// HasUsedKeys reports whether any key of the pool was already handed out.
func (p *Product) HasUsedKeys() bool {
	if p == nil {
		return false
	}
	for _, k := range p.DigitalKeys {
		if k.IsUsed() {
			return true
		}
	}
	return false
}

// KeyPoolSummary aggregates pool counts for operators.
type KeyPoolSummary struct {
	ProductID string `json:"productId"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
	Reserved  int    `json:"reserved"`
	Used      int    `json:"used"`
}
