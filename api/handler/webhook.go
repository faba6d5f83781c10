package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/api/transport"
	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/pkg/httpcontext"
	"github.com/fastygo/storefront/pkg/logger"
)

// PaymentEventHandler is the part of the fulfillment engine the webhook feeds.
type PaymentEventHandler interface {
	HandlePaymentEvent(ctx context.Context, ev domain.PaymentEvent) domain.Ack
}

// SignatureVerifier authenticates a notification for the given payment id.
type SignatureVerifier interface {
	Verify(ctx *fasthttp.RequestCtx, dataID string) error
}

type WebhookHandler struct {
	baseHandler
	engine   PaymentEventHandler
	verifier SignatureVerifier
}

func NewWebhookHandler(engine PaymentEventHandler, verifier SignatureVerifier, adapter *httpcontext.Adapter, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		baseHandler: newBaseHandler(adapter, logger),
		engine:      engine,
		verifier:    verifier,
	}
}

// @Summary Payment provider notification
// @Tags webhooks
// @Router /api/v1/webhooks/payments [post]
//
// The provider is always answered with 200, whatever happened inside.
// Notifications that fail signature verification never reach the engine.
func (h *WebhookHandler) Payments(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	log := logger.WithRequestID(stdCtx, h.logger)

	var req transport.PaymentWebhookRequest
	if body := ctx.PostBody(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			log.Warn("unreadable payment notification", zap.Error(err))
		}
	}

	args := ctx.QueryArgs()
	if req.Type == "" {
		req.Type = string(args.Peek("type"))
	}
	if req.Data.ID == "" {
		req.Data.ID = transport.FlexibleID(args.Peek("data.id"))
	}

	paymentID := strings.TrimSpace(string(req.Data.ID))
	if err := h.verifier.Verify(ctx, paymentID); err != nil {
		log.Warn("payment notification rejected",
			zap.String("payment_id", paymentID),
			zap.String("order_id", req.ExternalReference),
			zap.Error(err))
		h.respondSuccess(ctx, http.StatusOK, domain.Ack{
			OrderID: strings.TrimSpace(req.ExternalReference),
			Outcome: domain.OutcomeIgnored,
		})
		return
	}

	ack := h.engine.HandlePaymentEvent(stdCtx, domain.PaymentEvent{
		Type:              strings.TrimSpace(req.Type),
		ExternalPaymentID: paymentID,
		ExternalReference: req.ExternalReference,
		Status:            domain.PaymentStatus(strings.ToLower(strings.TrimSpace(req.Status))),
	})
	if ack.Err != nil {
		log.Error("payment notification acknowledged after internal failure",
			zap.String("order_id", ack.OrderID),
			zap.Error(ack.Err))
	}

	h.respondSuccess(ctx, http.StatusOK, ack)
}
