package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/api/transport"
	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/pkg/httpcontext"
	"github.com/fastygo/storefront/usecase/fulfillment"
	orderUC "github.com/fastygo/storefront/usecase/order"
)

type OrderHandler struct {
	baseHandler
	uc     *orderUC.UseCase
	engine *fulfillment.Engine
}

func NewOrderHandler(uc *orderUC.UseCase, engine *fulfillment.Engine, adapter *httpcontext.Adapter, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		engine:      engine,
	}
}

// @Summary Create order
// @Tags orders
// @Router /api/v1/orders [post]
func (h *OrderHandler) Create(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.CreateOrderRequest
	if !h.decode(ctx, &req) {
		return
	}

	items := make([]orderUC.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orderUC.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.Create(stdCtx, orderUC.CreateInput{
		UserID:        userID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Currency:      req.Currency,
		Items:         items,
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary List own orders
// @Tags orders
// @Router /api/v1/orders [get]
func (h *OrderHandler) List(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	status := domain.OrderStatus(ctx.QueryArgs().Peek("status"))
	orders, err := h.uc.ListByUser(stdCtx, userID, status)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondList(ctx, orders, len(orders))
}

// @Summary Get own order
// @Tags orders
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) Get(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	o, err := h.uc.GetForUser(stdCtx, pathParam(ctx, "id"), userID)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, o)
}

// @Summary Start payment for an order
// @Tags orders
// @Router /api/v1/orders/{id}/checkout [post]
func (h *OrderHandler) Checkout(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.CheckoutRequest
	if len(ctx.PostBody()) > 0 && !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id := pathParam(ctx, "id")
	if _, err := h.uc.GetForUser(stdCtx, id, userID); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}

	o, err := h.engine.BeginPayment(stdCtx, id, req.PreferenceID)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, o)
}
