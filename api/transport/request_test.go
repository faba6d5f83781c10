package transport

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestPaymentWebhookRequestIDForms(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`{"data":{"id":"987"}}`:  "987",
		`{"data":{"id":123456}}`: "123456",
		`{"data":{"id":null}}`:   "",
		`{"data":{}}`:            "",
		`{"type":"payment"}`:     "",
	}
	for body, want := range cases {
		var req PaymentWebhookRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("%s: unmarshal failed: %v", body, err)
		}
		if string(req.Data.ID) != want {
			t.Errorf("%s: expected %q, got %q", body, want, req.Data.ID)
		}
	}
}

func TestFlexibleIDRejectsObjects(t *testing.T) {
	t.Parallel()

	var req PaymentWebhookRequest
	if err := json.Unmarshal([]byte(`{"data":{"id":{"nested":true}}}`), &req); err == nil {
		t.Fatal("expected error for object id")
	}
}
