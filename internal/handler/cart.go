package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/deshikart/deshikart/internal/domain/cart"
)

// cartPayload pairs the cart with its condensed summary in every cart
// response.
type cartPayload struct {
	Cart    *cart.Cart   `json:"cart"`
	Summary cart.Summary `json:"summary"`
}

func payload(c *cart.Cart) cartPayload {
	return cartPayload{Cart: c, Summary: c.Summarize(time.Now())}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	c, err := h.carts.Get(r.Context(), uid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "cart retrieved", payload(c))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
		Size      string `json:"size"`
		Color     string `json:"color"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ProductID == "" {
		badRequest(w, "productId is required")
		return
	}
	if req.Quantity < 1 {
		badRequest(w, "quantity must be at least 1")
		return
	}

	c, err := h.carts.AddItem(r.Context(), uid, req.ProductID, req.Size, req.Color, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "item added to cart", payload(c))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	c, err := h.carts.UpdateQuantity(r.Context(), uid, chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "cart updated", payload(c))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), uid, chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "item removed from cart", payload(c))
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := decode(r, &req); err != nil || req.Code == "" {
		badRequest(w, "coupon code is required")
		return
	}

	c, err := h.carts.ApplyCoupon(r.Context(), uid, req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "coupon applied", payload(c))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	c, err := h.carts.RemoveCoupon(r.Context(), uid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "coupon removed", payload(c))
}

func (h *Handler) setShippingAddress(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var addr cart.Address
	if err := decode(r, &addr); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if addr.Name == "" || addr.Phone == "" || addr.Line1 == "" || addr.City == "" {
		badRequest(w, "name, phone, line1 and city are required")
		return
	}

	c, err := h.carts.SetShippingAddress(r.Context(), uid, addr)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "shipping address saved", payload(c))
}

// validateCheckout runs the pre-checkout checks without creating an order:
// the cart must be non-empty, every line available, and a shipping address
// set. Order creation itself happens on POST /orders.
func (h *Handler) validateCheckout(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	c, err := h.carts.Validate(r.Context(), uid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "cart is ready for checkout", payload(c))
}

func (h *Handler) setShippingMethod(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Method string `json:"method"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	c, err := h.carts.SetShippingMethod(r.Context(), uid, cart.Method(req.Method))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "shipping method selected", payload(c))
}
