package domain

import "time"

// OrderStatus tracks the payment lifecycle of an order.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
	OrderPaymentFailed  OrderStatus = "payment_failed"
	OrderCancelled      OrderStatus = "cancelled"
	OrderProcessing     OrderStatus = "processing"
	OrderCompleted      OrderStatus = "completed"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending: {
		OrderPendingPayment: true, OrderPaid: true, OrderPaymentFailed: true, OrderCancelled: true,
	},
	OrderPendingPayment: {
		OrderPendingPayment: true, OrderPaid: true, OrderPaymentFailed: true, OrderCancelled: true,
	},
	OrderPaymentFailed: {
		OrderPendingPayment: true, OrderPaid: true, OrderPaymentFailed: true, OrderCancelled: true,
	},
	OrderPaid:       {OrderProcessing: true, OrderCompleted: true},
	OrderProcessing: {OrderCompleted: true},
	OrderCompleted:  {},
	OrderCancelled:  {},
}

// CanTransition reports whether an order may move from one status to another.
// Nothing leaves the paid branch backwards.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsSettled reports whether the order already went through a successful payment.
func (s OrderStatus) IsSettled() bool {
	return s == OrderPaid || s == OrderProcessing || s == OrderCompleted
}

// OrderItem is a purchased line, snapshotted from the product at checkout.
type OrderItem struct {
	ProductID        string  `json:"productId"`
	Name             string  `json:"name"`
	Quantity         int     `json:"quantity"`
	IsDigitalProduct bool    `json:"isDigitalProduct"`
	Price            float64 `json:"price"`
}

// DeliveredKey is the summary of an allocated key stored on the order.
type DeliveredKey struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	KeyID       string `json:"keyId"`
	Key         string `json:"key"`
}

// KeyShortfall records digital units that could not be allocated.
type KeyShortfall struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Allocated   int    `json:"allocated"`
}

// Order is stored in the "orders" collection.
type Order struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"userId,omitempty"`
	CustomerEmail        string         `json:"customerEmail,omitempty"`
	CustomerName         string         `json:"customerName,omitempty"`
	Status               OrderStatus    `json:"status"`
	Items                []OrderItem    `json:"items"`
	Total                float64        `json:"total"`
	Currency             string         `json:"currency,omitempty"`
	PreferenceID         string         `json:"preferenceId,omitempty"`
	MercadopagoPaymentID string         `json:"mercadopagoPaymentId,omitempty"`
	PaymentStatus        string         `json:"paymentStatus,omitempty"`
	PaidAt               *time.Time     `json:"paidAt,omitempty"`
	DigitalKeys          []DeliveredKey `json:"digitalKeys,omitempty"`
	KeyShortfalls        []KeyShortfall `json:"keyShortfalls,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// DigitalUnits returns the number of digital units ordered per product,
// preserving the order in which products first appear.
func (o *Order) DigitalUnits() ([]string, map[string]int) {
	if o == nil {
		return nil, nil
	}
	var ids []string
	units := make(map[string]int)
	for _, item := range o.Items {
		if !item.IsDigitalProduct || item.Quantity <= 0 {
			continue
		}
		if _, seen := units[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		units[item.ProductID] += item.Quantity
	}
	return ids, units
}

// ItemName returns the snapshotted name of the first line for a product.
func (o *Order) ItemName(productID string) string {
	if o == nil {
		return ""
	}
	for _, item := range o.Items {
		if item.ProductID == productID {
			return item.Name
		}
	}
	return ""
}
