// Package handler exposes the REST surface: cart mutations, checkout, order
// lifecycle and payment processing, all behind API key authentication.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deshikart/deshikart/internal/checkout"
	"github.com/deshikart/deshikart/internal/domain/cart"
	"github.com/deshikart/deshikart/internal/domain/order"
	"github.com/deshikart/deshikart/internal/domain/payment"
)

// Handler wires HTTP routes to the domain services.
type Handler struct {
	carts    *cart.Service
	checkout *checkout.Service
	orders   *order.Service
	payments *payment.Service
	authn    *Authenticator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	carts *cart.Service,
	co *checkout.Service,
	orders *order.Service,
	payments *payment.Service,
	authn *Authenticator,
) *Handler {
	return &Handler{
		carts:    carts,
		checkout: co,
		orders:   orders,
		payments: payments,
		authn:    authn,
	}
}

// Routes returns the router for everything under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.authn.Authenticate)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Post("/add", h.addItem)
		r.Put("/update/{itemID}", h.updateItem)
		r.Delete("/remove/{itemID}", h.removeItem)
		r.Post("/apply-coupon", h.applyCoupon)
		r.Delete("/remove-coupon", h.removeCoupon)
		r.Put("/shipping-address", h.setShippingAddress)
		r.Put("/shipping-method", h.setShippingMethod)
		r.Post("/checkout", h.validateCheckout)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.placeOrder)
		r.Get("/", h.listOrders)
		r.Get("/{orderID}", h.getOrder)
		r.Get("/{orderID}/tracking", h.trackOrder)
		r.Put("/{orderID}/cancel", h.cancelOrder)
		r.Put("/{orderID}/return", h.returnOrder)
		r.With(RequireAdmin).Put("/{orderID}/status", h.updateOrderStatus)
	})

	r.Post("/payments/process", h.processPayment)

	return r
}

// userID returns the authenticated user. Routes are always behind
// Authenticate, so a missing identity is a programming error surfaced as 401.
func userID(r *http.Request) (string, bool) {
	key, ok := identityFrom(r.Context())
	if !ok {
		return "", false
	}
	return key.UserID, true
}
