package usecase

import (
	"context"

	"github.com/fastygo/storefront/domain"
)

// Delivery is everything the customer needs to receive purchased keys.
type Delivery struct {
	CustomerEmail string                `json:"customerEmail"`
	CustomerName  string                `json:"customerName"`
	Keys          []domain.DeliveredKey `json:"keys"`
	Order         domain.Order          `json:"order"`
}

// Notifier delivers allocated keys out-of-band. Failures never undo fulfillment.
type Notifier interface {
	Deliver(ctx context.Context, delivery Delivery) error
}
