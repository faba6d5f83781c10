package transport

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

type ProductRequest struct {
	Name             *string           `json:"name"`
	Description      *string           `json:"description"`
	Price            *float64          `json:"price"`
	Currency         *string           `json:"currency"`
	Stock            *int              `json:"stock"`
	IsDigitalProduct *bool             `json:"isDigitalProduct"`
	Images           []string          `json:"images"`
	Metadata         map[string]string `json:"metadata"`
}

type AddKeysRequest struct {
	Keys []string `json:"keys"`
}

type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	CustomerEmail string             `json:"customerEmail"`
	CustomerName  string             `json:"customerName"`
	Currency      string             `json:"currency"`
	Items         []OrderItemRequest `json:"items"`
}

type CheckoutRequest struct {
	PreferenceID string `json:"preferenceId"`
}

// PaymentWebhookRequest is the provider notification body. The payment id
// arrives as a number or a string depending on the provider version.
type PaymentWebhookRequest struct {
	Type string `json:"type"`
	Data struct {
		ID FlexibleID `json:"id"`
	} `json:"data"`
	ExternalReference string `json:"external_reference"`
	Status            string `json:"status"`
}

// FlexibleID accepts JSON strings and numbers.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}
