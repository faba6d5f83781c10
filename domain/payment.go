package domain

import "strings"

// PaymentStatus is the provider-reported status of a payment.
type PaymentStatus string

const (
	PaymentApproved  PaymentStatus = "approved"
	PaymentRejected  PaymentStatus = "rejected"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentPending   PaymentStatus = "pending"
	PaymentInProcess PaymentStatus = "in_process"
)

// PaymentEventType is the only notification type that carries payment state.
const PaymentEventType = "payment"

// PaymentEvent is an inbound provider notification. It is never persisted.
type PaymentEvent struct {
	Type              string        `json:"type"`
	ExternalPaymentID string        `json:"externalPaymentId"`
	ExternalReference string        `json:"externalReference"`
	Status            PaymentStatus `json:"status"`
}

// OrderID resolves the order the event refers to.
func (e PaymentEvent) OrderID() string {
	return strings.TrimSpace(e.ExternalReference)
}

// Outcome labels how an event was absorbed.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomePaid      Outcome = "paid"
	OutcomeFailed    Outcome = "payment_failed"
	OutcomePending   Outcome = "pending_payment"
	OutcomeError     Outcome = "error"
)

// Ack is returned to the event source regardless of the internal outcome.
type Ack struct {
	OrderID    string         `json:"orderId,omitempty"`
	Outcome    Outcome        `json:"outcome"`
	Keys       []DeliveredKey `json:"-"`
	Shortfalls []KeyShortfall `json:"-"`
	Err        error          `json:"-"`
}
