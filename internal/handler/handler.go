// Package handler exposes the order management and discount API over HTTP.
// Responses are encoded with go-faster/jx to keep the wire shape explicit;
// the discount report shape in particular is a frozen contract.
package handler

import (
	"net/http"

	"github.com/ozanyurt/order-discounts/internal/domain/order"
	"github.com/ozanyurt/order-discounts/internal/domain/product"
)

// Handler serves the REST API, delegating business logic to the order
// service and product repository.
type Handler struct {
	products     product.Repository
	orderService *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(products product.Repository, orderService *order.Service) *Handler {
	return &Handler{
		products:     products,
		orderService: orderService,
	}
}

// Register mounts all API routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.deleteOrder)
	mux.HandleFunc("GET /api/orders/{id}/discounts", h.orderDiscounts)
}
