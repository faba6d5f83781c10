package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/api/transport"
	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/pkg/httpcontext"
	"github.com/fastygo/storefront/usecase/keypool"
	productUC "github.com/fastygo/storefront/usecase/product"
)

type ProductHandler struct {
	baseHandler
	uc   *productUC.UseCase
	keys *keypool.Manager
}

func NewProductHandler(uc *productUC.UseCase, keys *keypool.Manager, adapter *httpcontext.Adapter, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		keys:        keys,
	}
}

// @Summary List products
// @Tags products
// @Router /api/v1/products [get]
func (h *ProductHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	products, err := h.uc.List(stdCtx)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondList(ctx, transport.NewProductViews(products), len(products))
}

// @Summary Get product
// @Tags products
// @Router /api/v1/products/{id} [get]
func (h *ProductHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	p, err := h.uc.Get(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewProductView(*p))
}

// @Summary Create product
// @Tags products
// @Router /api/v1/products [post]
func (h *ProductHandler) Create(ctx *fasthttp.RequestCtx) {
	var req transport.ProductRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.Create(stdCtx, productFromRequest(req))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update product
// @Tags products
// @Router /api/v1/products/{id} [put]
func (h *ProductHandler) Update(ctx *fasthttp.RequestCtx) {
	var req transport.ProductRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.Update(stdCtx, pathParam(ctx, "id"), productUC.Changes{
		Name:             req.Name,
		Description:      req.Description,
		Price:            req.Price,
		Currency:         req.Currency,
		Stock:            req.Stock,
		IsDigitalProduct: req.IsDigitalProduct,
		Images:           req.Images,
		Metadata:         req.Metadata,
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Delete product
// @Tags products
// @Router /api/v1/products/{id} [delete]
func (h *ProductHandler) Delete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	removed, err := h.uc.Delete(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	if !removed {
		h.respondError(stdCtx, ctx, domain.ErrProductNotFound)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Add keys to a digital product
// @Tags keys
// @Router /api/v1/products/{id}/keys [post]
func (h *ProductHandler) AddKeys(ctx *fasthttp.RequestCtx) {
	var req transport.AddKeysRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	added, err := h.keys.AddKeys(stdCtx, pathParam(ctx, "id"), req.Keys)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, added)
}

// @Summary List the key pool of a product
// @Tags keys
// @Router /api/v1/products/{id}/keys [get]
func (h *ProductHandler) ListKeys(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id := pathParam(ctx, "id")
	summary, err := h.keys.Summary(stdCtx, id)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	keys, err := h.keys.Keys(stdCtx, id)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.KeyPoolView{Summary: summary, Keys: keys})
}

// @Summary Delete an unused key
// @Tags keys
// @Router /api/v1/products/{id}/keys/{keyId} [delete]
func (h *ProductHandler) DeleteKey(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	removed, err := h.keys.DeleteAvailable(stdCtx, pathParam(ctx, "id"), pathParam(ctx, "keyId"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	if !removed {
		h.respondError(stdCtx, ctx, domain.ErrKeyNotFound)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

func productFromRequest(req transport.ProductRequest) *domain.Product {
	p := &domain.Product{
		Images:   req.Images,
		Metadata: req.Metadata,
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Currency != nil {
		p.Currency = *req.Currency
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.IsDigitalProduct != nil {
		p.IsDigitalProduct = *req.IsDigitalProduct
	}
	return p
}
