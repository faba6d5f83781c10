package transport

import (
	"time"

	"github.com/fastygo/storefront/domain"
)

// ProductView is the public shape of a product. Key codes never leave the
// admin endpoints.
type ProductView struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Price            float64           `json:"price"`
	Currency         string            `json:"currency,omitempty"`
	Stock            int               `json:"stock"`
	IsDigitalProduct bool              `json:"isDigitalProduct"`
	Images           []string          `json:"images,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func NewProductView(p domain.Product) ProductView {
	return ProductView{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		Price:            p.Price,
		Currency:         p.Currency,
		Stock:            p.Stock,
		IsDigitalProduct: p.IsDigitalProduct,
		Images:           p.Images,
		Metadata:         p.Metadata,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func NewProductViews(products []domain.Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, NewProductView(p))
	}
	return out
}

type KeyPoolView struct {
	Summary *domain.KeyPoolSummary `json:"summary"`
	Keys    []domain.Key           `json:"keys"`
}
