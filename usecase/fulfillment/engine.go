// Package fulfillment turns at-least-once payment notifications into a single
// allocation of digital keys per order.
package fulfillment

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/pkg/keymutex"
	"github.com/fastygo/storefront/pkg/logger"
	"github.com/fastygo/storefront/repository"
	"github.com/fastygo/storefront/usecase"
)

// KeyAllocator is the part of the key pool the engine draws from.
type KeyAllocator interface {
	AllocateOne(ctx context.Context, productID, orderID string) (*domain.Key, error)
	ClaimedBy(ctx context.Context, productID, orderID string) ([]domain.Key, error)
}

// PaymentDeduper remembers approved payment ids so redeliveries can be
// answered without touching the store. The order status stays authoritative.
type PaymentDeduper interface {
	Seen(ctx context.Context, paymentID string) (bool, error)
	Mark(ctx context.Context, paymentID, orderID string) error
}

type Engine struct {
	orders   repository.OrderRepository
	keys     KeyAllocator
	notifier usecase.Notifier
	dedup    PaymentDeduper
	locks    *keymutex.Map
	logger   *zap.Logger
	now      func() time.Time
}

// New builds the engine. notifier and dedup may be nil.
func New(orders repository.OrderRepository, keys KeyAllocator, notifier usecase.Notifier, dedup PaymentDeduper, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		orders:   orders,
		keys:     keys,
		notifier: notifier,
		dedup:    dedup,
		locks:    keymutex.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// HandlePaymentEvent applies a provider notification to its order. It always
// returns an acknowledgement; internal failures are logged and reported in
// Ack.Err so the caller can still answer the provider with success.
func (e *Engine) HandlePaymentEvent(ctx context.Context, ev domain.PaymentEvent) domain.Ack {
	log := logger.WithRequestID(ctx, e.logger).With(
		zap.String("payment_id", ev.ExternalPaymentID),
		zap.String("payment_status", string(ev.Status)),
		zap.String("order_id", ev.OrderID()),
	)

	if ev.Type != "" && ev.Type != domain.PaymentEventType {
		log.Debug("ignoring non-payment event", zap.String("type", ev.Type))
		return domain.Ack{Outcome: domain.OutcomeIgnored}
	}

	orderID := ev.OrderID()
	if orderID == "" {
		log.Warn("payment event without external reference")
		return domain.Ack{Outcome: domain.OutcomeIgnored}
	}
	ack := domain.Ack{OrderID: orderID}

	if ev.Status == domain.PaymentApproved && e.dedup != nil && ev.ExternalPaymentID != "" {
		seen, err := e.dedup.Seen(ctx, ev.ExternalPaymentID)
		if err != nil {
			log.Warn("payment dedup lookup failed", zap.Error(err))
		} else if seen {
			log.Info("approved payment already processed")
			ack.Outcome = domain.OutcomeDuplicate
			return ack
		}
	}

	unlock, err := e.locks.Lock(ctx, orderID)
	if err != nil {
		log.Error("order lock not acquired", zap.Error(err))
		ack.Outcome, ack.Err = domain.OutcomeError, err
		return ack
	}
	defer unlock()

	order, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			log.Warn("payment event for unknown order")
			ack.Outcome = domain.OutcomeIgnored
			return ack
		}
		log.Error("order load failed", zap.Error(err))
		ack.Outcome, ack.Err = domain.OutcomeError, err
		return ack
	}

	switch ev.Status {
	case domain.PaymentApproved:
		return e.approve(ctx, log, order, ev)
	case domain.PaymentRejected, domain.PaymentCancelled:
		return e.transition(ctx, log, order, ev, domain.OrderPaymentFailed, domain.OutcomeFailed)
	case domain.PaymentPending, domain.PaymentInProcess:
		return e.transition(ctx, log, order, ev, domain.OrderPendingPayment, domain.OutcomePending)
	default:
		log.Warn("unhandled payment status")
		ack.Outcome = domain.OutcomeIgnored
		return ack
	}
}

// BeginPayment records the checkout preference and moves the order to
// pending_payment. Orders whose payment failed may start over.
func (e *Engine) BeginPayment(ctx context.Context, orderID, preferenceID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, domain.Invalid("order id is required")
	}

	unlock, err := e.locks.Lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := e.orders.Mutate(ctx, orderID, func(cur *domain.Order) (map[string]interface{}, error) {
		if !domain.CanTransition(cur.Status, domain.OrderPendingPayment) {
			return nil, domain.WrapError(domain.ErrCodeConflict,
				"cannot start payment from status "+string(cur.Status), domain.ErrInvalidTransition)
		}
		fields := map[string]interface{}{"status": domain.OrderPendingPayment}
		if preferenceID != "" {
			fields["preferenceId"] = preferenceID
		}
		return fields, nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithRequestID(ctx, e.logger).Info("payment started",
		zap.String("order_id", orderID),
		zap.String("preference_id", preferenceID))
	return order, nil
}

func (e *Engine) approve(ctx context.Context, log *zap.Logger, order *domain.Order, ev domain.PaymentEvent) domain.Ack {
	ack := domain.Ack{OrderID: order.ID}

	if order.Status.IsSettled() {
		log.Info("order already paid, skipping fulfillment")
		ack.Outcome = domain.OutcomeDuplicate
		ack.Keys = order.DigitalKeys
		ack.Shortfalls = order.KeyShortfalls
		return ack
	}
	if !domain.CanTransition(order.Status, domain.OrderPaid) {
		log.Error("approved payment for order that cannot be paid", zap.String("status", string(order.Status)))
		ack.Outcome = domain.OutcomeIgnored
		return ack
	}

	delivered, shortfalls := e.allocate(ctx, log, order)

	paidAt := e.now().UTC()
	fields := map[string]interface{}{
		"status":               domain.OrderPaid,
		"mercadopagoPaymentId": ev.ExternalPaymentID,
		"paymentStatus":        string(ev.Status),
		"paidAt":               paidAt,
		"digitalKeys":          delivered,
	}
	if len(shortfalls) > 0 {
		fields["keyShortfalls"] = shortfalls
	}

	updated, err := e.orders.Mutate(ctx, order.ID, func(cur *domain.Order) (map[string]interface{}, error) {
		if cur.Status.IsSettled() {
			return nil, nil
		}
		return fields, nil
	})
	if err != nil {
		// Keys stay claimed by this order and are picked up again on redelivery.
		log.Error("persisting paid order failed", zap.Int("keys", len(delivered)), zap.Error(err))
		ack.Outcome, ack.Err = domain.OutcomeError, err
		return ack
	}

	if e.dedup != nil && ev.ExternalPaymentID != "" {
		if err := e.dedup.Mark(ctx, ev.ExternalPaymentID, order.ID); err != nil {
			log.Warn("payment dedup mark failed", zap.Error(err))
		}
	}

	log.Info("order paid", zap.Int("keys", len(delivered)), zap.Int("shortfalls", len(shortfalls)))
	e.notify(ctx, log, updated, delivered)

	ack.Outcome = domain.OutcomePaid
	ack.Keys = delivered
	ack.Shortfalls = shortfalls
	return ack
}

// allocate draws one key per digital unit. Keys this order already holds from
// an interrupted earlier attempt are reused before new ones are drawn.
func (e *Engine) allocate(ctx context.Context, log *zap.Logger, order *domain.Order) ([]domain.DeliveredKey, []domain.KeyShortfall) {
	var (
		delivered  []domain.DeliveredKey
		shortfalls []domain.KeyShortfall
	)

	productIDs, units := order.DigitalUnits()
	for _, productID := range productIDs {
		need := units[productID]
		name := order.ItemName(productID)
		got := 0

		claimed, err := e.keys.ClaimedBy(ctx, productID, order.ID)
		if err != nil {
			log.Warn("claimed key lookup failed", zap.String("product_id", productID), zap.Error(err))
		}
		if len(claimed) > need {
			claimed = claimed[:need]
		}
		if len(claimed) > 0 {
			log.Info("reusing keys already claimed by order",
				zap.String("product_id", productID), zap.Int("count", len(claimed)))
		}
		for _, k := range claimed {
			delivered = append(delivered, deliveredKey(productID, name, k))
			got++
		}

		for got < need {
			key, err := e.keys.AllocateOne(ctx, productID, order.ID)
			if err != nil {
				if !errors.Is(err, domain.ErrNoKeyAvailable) {
					log.Error("key allocation failed", zap.String("product_id", productID), zap.Error(err))
				}
				break
			}
			delivered = append(delivered, deliveredKey(productID, name, *key))
			got++
		}

		if got < need {
			log.Warn("partial fulfillment",
				zap.String("product_id", productID),
				zap.Int("requested", need),
				zap.Int("allocated", got))
			shortfalls = append(shortfalls, domain.KeyShortfall{
				ProductID:   productID,
				ProductName: name,
				Requested:   need,
				Allocated:   got,
			})
		}
	}
	return delivered, shortfalls
}

func (e *Engine) transition(ctx context.Context, log *zap.Logger, order *domain.Order, ev domain.PaymentEvent, to domain.OrderStatus, outcome domain.Outcome) domain.Ack {
	ack := domain.Ack{OrderID: order.ID}

	applied := false
	_, err := e.orders.Mutate(ctx, order.ID, func(cur *domain.Order) (map[string]interface{}, error) {
		if !domain.CanTransition(cur.Status, to) {
			return nil, nil
		}
		applied = true
		fields := map[string]interface{}{
			"status":        to,
			"paymentStatus": string(ev.Status),
		}
		if ev.ExternalPaymentID != "" {
			fields["mercadopagoPaymentId"] = ev.ExternalPaymentID
		}
		return fields, nil
	})
	if err != nil {
		log.Error("order status update failed", zap.String("to", string(to)), zap.Error(err))
		ack.Outcome, ack.Err = domain.OutcomeError, err
		return ack
	}
	if !applied {
		log.Warn("payment event does not apply to order status",
			zap.String("status", string(order.Status)), zap.String("to", string(to)))
		ack.Outcome = domain.OutcomeIgnored
		return ack
	}

	log.Info("order status updated", zap.String("to", string(to)))
	ack.Outcome = outcome
	return ack
}

func (e *Engine) notify(ctx context.Context, log *zap.Logger, order *domain.Order, keys []domain.DeliveredKey) {
	if e.notifier == nil || order == nil {
		return
	}
	delivery := usecase.Delivery{
		CustomerEmail: order.CustomerEmail,
		CustomerName:  order.CustomerName,
		Keys:          keys,
		Order:         *order,
	}
	if err := e.notifier.Deliver(ctx, delivery); err != nil {
		log.Error("key delivery failed", zap.Error(err))
	}
}

func deliveredKey(productID, name string, k domain.Key) domain.DeliveredKey {
	return domain.DeliveredKey{
		ProductID:   productID,
		ProductName: name,
		KeyID:       k.ID,
		Key:         k.Code,
	}
}
