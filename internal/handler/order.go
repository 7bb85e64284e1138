package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/deshikart/deshikart/internal/checkout"
	"github.com/deshikart/deshikart/internal/domain/cart"
	"github.com/deshikart/deshikart/internal/domain/order"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Customer struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Phone string `json:"phone"`
		} `json:"customer"`
		PaymentMethod  string        `json:"paymentMethod"`
		BillingAddress *cart.Address `json:"billingAddress"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.PaymentMethod == "" {
		badRequest(w, "paymentMethod is required")
		return
	}

	o, err := h.checkout.Checkout(r.Context(), uid, checkout.Request{
		Customer: order.CustomerInfo{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		PaymentMethod:  req.PaymentMethod,
		BillingAddress: req.BillingAddress,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "order placed", o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.orders.List(r.Context(), uid, limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	respond(w, http.StatusOK, "orders retrieved", orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	o, err := h.orders.Get(r.Context(), uid, chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "order retrieved", o)
}

func (h *Handler) trackOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	tr, err := h.orders.Track(r.Context(), uid, chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "tracking retrieved", tr)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = decode(r, &req) // reason is optional

	o, err := h.orders.Cancel(r.Context(), uid, chi.URLParam(r, "orderID"), req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "order cancelled", o)
}

func (h *Handler) returnOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := decode(r, &req); err != nil || req.Reason == "" {
		badRequest(w, "a return reason is required")
		return
	}

	o, err := h.orders.RequestReturn(r.Context(), uid, chi.URLParam(r, "orderID"), req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "return requested", o)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	key, ok := identityFrom(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Status  string `json:"status"`
		Note    string `json:"note"`
		Courier *struct {
			Name           string `json:"name"`
			TrackingNumber string `json:"trackingNumber"`
			TrackingURL    string `json:"trackingUrl"`
		} `json:"courier"`
	}
	if err := decode(r, &req); err != nil || req.Status == "" {
		badRequest(w, "status is required")
		return
	}

	var courier *order.Courier
	if req.Courier != nil {
		courier = &order.Courier{
			Name:           req.Courier.Name,
			TrackingNumber: req.Courier.TrackingNumber,
			TrackingURL:    req.Courier.TrackingURL,
		}
	}

	o, err := h.orders.UpdateStatus(r.Context(),
		chi.URLParam(r, "orderID"), order.Status(req.Status), req.Note, "admin:"+key.UserID, courier)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "order status updated", o)
}
