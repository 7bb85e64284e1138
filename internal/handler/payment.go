package handler

import (
	"net/http"

	"github.com/deshikart/deshikart/internal/domain/payment"
)

func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		unauthorized(w)
		return
	}

	// Secrets are mapped by hand: payment.Details excludes them from JSON so
	// they can never leak back out in a response.
	var req struct {
		OrderID       string `json:"orderId"`
		Method        string `json:"method"`
		AccountNumber string `json:"accountNumber"`
		WalletPIN     string `json:"walletPin"`
		CardNumber    string `json:"cardNumber"`
		CardHolder    string `json:"cardHolder"`
		Reference     string `json:"reference"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.OrderID == "" {
		badRequest(w, "orderId is required")
		return
	}
	if req.Method == "" {
		badRequest(w, "method is required")
		return
	}

	o, res, err := h.payments.Process(r.Context(), uid, req.OrderID, payment.Method(req.Method), payment.Details{
		AccountNumber: req.AccountNumber,
		WalletPIN:     req.WalletPIN,
		CardNumber:    req.CardNumber,
		CardHolder:    req.CardHolder,
		Reference:     req.Reference,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "payment processed", map[string]any{
		"order":   o,
		"payment": res,
	})
}
