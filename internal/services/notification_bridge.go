package services

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/fastygo/storefront/internal/infrastructure/buffer"
	"github.com/fastygo/storefront/usecase"
)

// NotificationBridge is the Notifier handed to the fulfillment engine. A
// delivery that cannot be made right away is parked in the outbox instead of
// being lost.
type NotificationBridge struct {
	processor *NotificationProcessor
}

func NewNotificationBridge(processor *NotificationProcessor) *NotificationBridge {
	return &NotificationBridge{processor: processor}
}

func (b *NotificationBridge) Deliver(ctx context.Context, d usecase.Delivery) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	priority := 3
	if len(d.Keys) > 0 {
		priority = 1
	}
	return b.processor.Submit(ctx, buffer.Item{
		OrderID:  d.Order.ID,
		Kind:     buffer.KindKeyDelivery,
		Data:     payload,
		Priority: priority,
	})
}

var _ usecase.Notifier = (*NotificationBridge)(nil)
