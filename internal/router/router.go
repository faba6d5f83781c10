package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/storefront/api/handler"
)

type Handlers struct {
	Product    *apiHandler.ProductHandler
	Order      *apiHandler.OrderHandler
	Webhook    *apiHandler.WebhookHandler
	Collection *apiHandler.CollectionHandler
	Health     *apiHandler.HealthHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

func New(handlers Handlers, authMiddleware, adminMiddleware Middleware) *router.Router {
	r := router.New()

	admin := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return authMiddleware(adminMiddleware(h))
	}

	r.GET("/health", handlers.Health.Check)

	// Provider callbacks
	r.POST("/api/v1/webhooks/payments", handlers.Webhook.Payments)

	// Catalogue
	r.GET("/api/v1/products", handlers.Product.List)
	r.GET("/api/v1/products/{id}", handlers.Product.Get)
	r.POST("/api/v1/products", admin(handlers.Product.Create))
	r.PUT("/api/v1/products/{id}", admin(handlers.Product.Update))
	r.DELETE("/api/v1/products/{id}", admin(handlers.Product.Delete))
	r.GET("/api/v1/products/{id}/keys", admin(handlers.Product.ListKeys))
	r.POST("/api/v1/products/{id}/keys", admin(handlers.Product.AddKeys))
	r.DELETE("/api/v1/products/{id}/keys/{keyId}", admin(handlers.Product.DeleteKey))

	// Orders
	r.POST("/api/v1/orders", authMiddleware(handlers.Order.Create))
	r.GET("/api/v1/orders", authMiddleware(handlers.Order.List))
	r.GET("/api/v1/orders/{id}", authMiddleware(handlers.Order.Get))
	r.POST("/api/v1/orders/{id}/checkout", authMiddleware(handlers.Order.Checkout))

	// Auxiliary collections
	r.GET("/api/v1/collections/{name}", admin(handlers.Collection.List))
	r.POST("/api/v1/collections/{name}", admin(handlers.Collection.Create))
	r.GET("/api/v1/collections/{name}/{id}", admin(handlers.Collection.Get))
	r.PUT("/api/v1/collections/{name}/{id}", admin(handlers.Collection.Update))
	r.DELETE("/api/v1/collections/{name}/{id}", admin(handlers.Collection.Delete))

	return r
}
