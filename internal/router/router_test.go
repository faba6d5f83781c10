package router

import (
	"net/http"
	"path/filepath"
	"testing"

	frouter "github.com/fasthttp/router"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/storefront/api/handler"
	"github.com/fastygo/storefront/internal/infrastructure/buffer"
	"github.com/fastygo/storefront/internal/infrastructure/docstore"
	"github.com/fastygo/storefront/internal/infrastructure/monitor"
	notifyinfra "github.com/fastygo/storefront/internal/infrastructure/notify"
	"github.com/fastygo/storefront/internal/middleware"
	"github.com/fastygo/storefront/internal/services"
	"github.com/fastygo/storefront/pkg/httpcontext"
	"github.com/fastygo/storefront/repository/docrepo"
	collectionUC "github.com/fastygo/storefront/usecase/collection"
	"github.com/fastygo/storefront/usecase/fulfillment"
	"github.com/fastygo/storefront/usecase/keypool"
	orderUC "github.com/fastygo/storefront/usecase/order"
	productUC "github.com/fastygo/storefront/usecase/product"
)

const (
	testSecret    = "test-secret"
	webhookSecret = "webhook-secret"
)

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *frouter.Router {
	t.Helper()
	dir := t.TempDir()
	store, err := docstore.Open(docstore.Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open store failed: %v", err)
	}
	outbox, err := buffer.Open(filepath.Join(dir, "outbox.db"), "")
	if err != nil {
		t.Fatalf("Open outbox failed: %v", err)
	}
	t.Cleanup(func() { _ = outbox.Close() })

	mon := monitor.New(store, outbox, nil, nil, 0, nil)
	mon.Refresh()
	processor := services.NewNotificationProcessor(outbox, notifyinfra.NewLog(nil), mon, nil, services.ProcessorConfig{})

	products := docrepo.NewProductRepository(store)
	orders := docrepo.NewOrderRepository(store)
	keys := keypool.New(products, nil)
	engine := fulfillment.New(orders, keys, services.NewNotificationBridge(processor), nil, nil)
	adapter := httpcontext.NewAdapter(0)

	return New(Handlers{
		Product:    apiHandler.NewProductHandler(productUC.New(products, nil), keys, adapter, nil),
		Order:      apiHandler.NewOrderHandler(orderUC.New(orders, products, nil), engine, adapter, nil),
		Webhook:    apiHandler.NewWebhookHandler(engine, middleware.NewPaymentSignature(webhookSecret), adapter, nil),
		Collection: apiHandler.NewCollectionHandler(collectionUC.New(docrepo.NewDocumentRepository(store), nil), adapter, nil),
		Health:     apiHandler.NewHealthHandler(mon, adapter, nil),
	}, middleware.JWTAuth(testSecret, nil), middleware.RequireRole("admin"))
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func do(t *testing.T, r *frouter.Router, method, uri, bearer string, body interface{}) (int, envelope) {
	t.Helper()
	headers := map[string]string{}
	if bearer != "" {
		headers["Authorization"] = "Bearer " + bearer
	}
	return doWithHeaders(t, r, method, uri, headers, body)
}

// notify posts a payment notification, signed with secret unless it is empty.
func notify(t *testing.T, r *frouter.Router, secret, paymentID string, body interface{}) (int, envelope) {
	t.Helper()
	headers := map[string]string{}
	if secret != "" {
		headers[middleware.HeaderWebhookRequestID] = "mp-req-1"
		headers[middleware.HeaderSignature] = middleware.NewPaymentSignature(secret).Sign(paymentID, "mp-req-1", "1700000000")
	}
	return doWithHeaders(t, r, http.MethodPost, "/api/v1/webhooks/payments", headers, body)
}

func doWithHeaders(t *testing.T, r *frouter.Router, method, uri string, headers map[string]string, body interface{}) (int, envelope) {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	for k, v := range headers {
		ctx.Request.Header.Set(k, v)
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		ctx.Request.SetBody(raw)
	}

	r.Handler(&ctx)

	var env envelope
	if len(ctx.Response.Body()) > 0 {
		if err := json.Unmarshal(ctx.Response.Body(), &env); err != nil {
			t.Fatalf("decode response %q: %v", ctx.Response.Body(), err)
		}
	}
	return ctx.Response.StatusCode(), env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func TestPurchaseFlow(t *testing.T) {
	r := newTestRouter(t)
	admin := token(t, "admin-1", "admin")
	buyer := token(t, "buyer-1", "")

	status, env := do(t, r, http.MethodPost, "/api/v1/products", admin, map[string]interface{}{
		"name": "Game", "price": 20, "isDigitalProduct": true,
	})
	if status != http.StatusCreated {
		t.Fatalf("create product: %d %+v", status, env)
	}
	var product struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &product)

	if status, _ := do(t, r, http.MethodPost, "/api/v1/products/"+product.ID+"/keys", admin,
		map[string]interface{}{"keys": []string{"AAA", "BBB"}}); status != http.StatusCreated {
		t.Fatalf("add keys: %d", status)
	}

	status, env = do(t, r, http.MethodGet, "/api/v1/products/"+product.ID, "", nil)
	if status != http.StatusOK {
		t.Fatalf("get product: %d", status)
	}
	if string(env.Data) == "" || containsKey(env.Data) {
		t.Errorf("public product view must not expose keys: %s", env.Data)
	}

	status, env = do(t, r, http.MethodPost, "/api/v1/orders", buyer, map[string]interface{}{
		"customerEmail": "buyer@example.com",
		"items":         []map[string]interface{}{{"productId": product.ID, "quantity": 1}},
	})
	if status != http.StatusCreated {
		t.Fatalf("create order: %d %+v", status, env)
	}
	var order struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, env, &order)

	if status, _ := do(t, r, http.MethodPost, "/api/v1/orders/"+order.ID+"/checkout", buyer,
		map[string]string{"preferenceId": "pref-1"}); status != http.StatusOK {
		t.Fatalf("checkout: %d", status)
	}

	webhook := map[string]interface{}{
		"type":               "payment",
		"data":               map[string]interface{}{"id": 123456},
		"external_reference": order.ID,
		"status":             "approved",
	}
	for i := 0; i < 2; i++ {
		status, env = notify(t, r, webhookSecret, "123456", webhook)
		if status != http.StatusOK || env.Status != "success" {
			t.Fatalf("webhook delivery %d: %d %+v", i, status, env)
		}
	}

	status, env = do(t, r, http.MethodGet, "/api/v1/orders/"+order.ID, buyer, nil)
	if status != http.StatusOK {
		t.Fatalf("get order: %d", status)
	}
	var paid struct {
		Status               string `json:"status"`
		MercadopagoPaymentID string `json:"mercadopagoPaymentId"`
		DigitalKeys          []struct {
			Key string `json:"key"`
		} `json:"digitalKeys"`
	}
	decodeData(t, env, &paid)
	if paid.Status != "paid" || paid.MercadopagoPaymentID != "123456" {
		t.Errorf("unexpected order: %+v", paid)
	}
	if len(paid.DigitalKeys) != 1 || paid.DigitalKeys[0].Key != "AAA" {
		t.Errorf("expected exactly key AAA, got %+v", paid.DigitalKeys)
	}

	if status, _ := do(t, r, http.MethodGet, "/api/v1/orders/"+order.ID, token(t, "someone-else", ""), nil); status != http.StatusNotFound {
		t.Errorf("foreign order must be hidden, got %d", status)
	}
	if status, _ := do(t, r, http.MethodDelete, "/api/v1/products/"+product.ID, admin, nil); status != http.StatusConflict {
		t.Errorf("product with used keys must not be deletable, got %d", status)
	}
}

// setupPendingOrder creates a digital product with one key and an order for
// it placed by buyer-1, without starting checkout.
func setupPendingOrder(t *testing.T, r *frouter.Router) (productID, orderID string) {
	t.Helper()
	admin := token(t, "admin-1", "admin")

	_, env := do(t, r, http.MethodPost, "/api/v1/products", admin, map[string]interface{}{
		"name": "Game", "price": 20, "isDigitalProduct": true,
	})
	var product struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &product)
	if status, _ := do(t, r, http.MethodPost, "/api/v1/products/"+product.ID+"/keys", admin,
		map[string]interface{}{"keys": []string{"AAA"}}); status != http.StatusCreated {
		t.Fatalf("add keys: %d", status)
	}

	status, env := do(t, r, http.MethodPost, "/api/v1/orders", token(t, "buyer-1", ""), map[string]interface{}{
		"items": []map[string]interface{}{{"productId": product.ID, "quantity": 1}},
	})
	if status != http.StatusCreated {
		t.Fatalf("create order: %d %+v", status, env)
	}
	var order struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &order)
	return product.ID, order.ID
}

func TestUnsignedApprovalDoesNotFulfill(t *testing.T) {
	r := newTestRouter(t)
	productID, orderID := setupPendingOrder(t, r)

	approval := map[string]interface{}{
		"type":               "payment",
		"data":               map[string]string{"id": "fabricated"},
		"external_reference": orderID,
		"status":             "approved",
	}

	attempts := []struct {
		name   string
		secret string
		signID string
	}{
		{"unsigned", "", ""},
		{"wrong secret", "guessed", "fabricated"},
		{"signature for another payment", webhookSecret, "other-payment"},
	}
	for _, a := range attempts {
		status, env := notify(t, r, a.secret, a.signID, approval)
		if status != http.StatusOK || env.Status != "success" {
			t.Fatalf("%s: expected 200 success, got %d %+v", a.name, status, env)
		}
		var ack struct {
			Outcome string `json:"outcome"`
		}
		decodeData(t, env, &ack)
		if ack.Outcome != "ignored" {
			t.Errorf("%s: expected ignored outcome, got %q", a.name, ack.Outcome)
		}
	}

	_, env := do(t, r, http.MethodGet, "/api/v1/orders/"+orderID, token(t, "buyer-1", ""), nil)
	var order struct {
		Status      string        `json:"status"`
		DigitalKeys []interface{} `json:"digitalKeys"`
	}
	decodeData(t, env, &order)
	if order.Status != "pending" || len(order.DigitalKeys) != 0 {
		t.Fatalf("order must stay pending without keys, got %+v", order)
	}

	_, env = do(t, r, http.MethodGet, "/api/v1/products/"+productID+"/keys", token(t, "admin-1", "admin"), nil)
	var pool struct {
		Summary struct {
			Available int `json:"available"`
			Used      int `json:"used"`
		} `json:"summary"`
	}
	decodeData(t, env, &pool)
	if pool.Summary.Available != 1 || pool.Summary.Used != 0 {
		t.Fatalf("key pool must be untouched, got %+v", pool.Summary)
	}

	if status, _ := notify(t, r, webhookSecret, "fabricated", approval); status != http.StatusOK {
		t.Fatalf("signed approval: %d", status)
	}
	_, env = do(t, r, http.MethodGet, "/api/v1/orders/"+orderID, token(t, "buyer-1", ""), nil)
	decodeData(t, env, &order)
	if order.Status != "paid" || len(order.DigitalKeys) != 1 {
		t.Fatalf("signed approval must fulfill, got %+v", order)
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		name string
		body interface{}
	}{
		{"unknown order", map[string]interface{}{"type": "payment", "data": map[string]string{"id": "1"}, "external_reference": "nope", "status": "approved"}},
		{"garbage", "not-an-object"},
		{"empty", nil},
	}
	for _, tc := range cases {
		status, env := notify(t, r, webhookSecret, "1", tc.body)
		if status != http.StatusOK || env.Status != "success" {
			t.Errorf("%s: expected 200 success, got %d %+v", tc.name, status, env)
		}
	}
}

func TestAuthorization(t *testing.T) {
	r := newTestRouter(t)

	if status, _ := do(t, r, http.MethodGet, "/api/v1/orders", "", nil); status != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", status)
	}
	if status, _ := do(t, r, http.MethodGet, "/api/v1/orders", "garbage", nil); status != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", status)
	}
	if status, _ := do(t, r, http.MethodPost, "/api/v1/products", token(t, "u", "customer"), map[string]interface{}{"name": "x"}); status != http.StatusForbidden {
		t.Errorf("non-admin: expected 403, got %d", status)
	}
	if status, _ := do(t, r, http.MethodGet, "/api/v1/collections/orders", token(t, "a", "admin"), nil); status != http.StatusBadRequest {
		t.Errorf("orders are not a generic collection: expected 400, got %d", status)
	}
	if status, _ := do(t, r, http.MethodGet, "/api/v1/collections/coupons", token(t, "a", "admin"), nil); status != http.StatusOK {
		t.Errorf("coupons: expected 200, got %d", status)
	}
	if status, _ := do(t, r, http.MethodGet, "/health", "", nil); status != http.StatusOK {
		t.Errorf("health: expected 200, got %d", status)
	}
}

func containsKey(raw json.RawMessage) bool {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return true
	}
	_, ok := m["digitalKeys"]
	return ok
}
