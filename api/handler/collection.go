package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/pkg/httpcontext"
	collectionUC "github.com/fastygo/storefront/usecase/collection"
)

type CollectionHandler struct {
	baseHandler
	uc *collectionUC.UseCase
}

func NewCollectionHandler(uc *collectionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *CollectionHandler {
	return &CollectionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List documents of a collection
// @Tags collections
// @Router /api/v1/collections/{name} [get]
func (h *CollectionHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	docs, err := h.uc.List(stdCtx, pathParam(ctx, "name"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondList(ctx, docs, len(docs))
}

// @Summary Get document
// @Tags collections
// @Router /api/v1/collections/{name}/{id} [get]
func (h *CollectionHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	doc, err := h.uc.Get(stdCtx, pathParam(ctx, "name"), pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, doc)
}

// @Summary Create document
// @Tags collections
// @Router /api/v1/collections/{name} [post]
func (h *CollectionHandler) Create(ctx *fasthttp.RequestCtx) {
	var fields map[string]interface{}
	if !h.decode(ctx, &fields) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	doc, err := h.uc.Create(stdCtx, pathParam(ctx, "name"), fields)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, doc)
}

// @Summary Update document
// @Tags collections
// @Router /api/v1/collections/{name}/{id} [put]
func (h *CollectionHandler) Update(ctx *fasthttp.RequestCtx) {
	var fields map[string]interface{}
	if !h.decode(ctx, &fields) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	doc, err := h.uc.Update(stdCtx, pathParam(ctx, "name"), pathParam(ctx, "id"), fields)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, doc)
}

// @Summary Delete document
// @Tags collections
// @Router /api/v1/collections/{name}/{id} [delete]
func (h *CollectionHandler) Delete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	removed, err := h.uc.Delete(stdCtx, pathParam(ctx, "name"), pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	if !removed {
		h.respondError(stdCtx, ctx, domain.ErrDocumentNotFound)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}
