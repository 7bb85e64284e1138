package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/deshikart/deshikart/internal/domain/cart"
	"github.com/deshikart/deshikart/internal/domain/coupon"
	"github.com/deshikart/deshikart/internal/domain/order"
	"github.com/deshikart/deshikart/internal/domain/payment"
	"github.com/deshikart/deshikart/internal/domain/product"
	"github.com/deshikart/deshikart/internal/domain/stock"
)

// response is the uniform API envelope.
type response struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes a success envelope.
func respond(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, response{Success: true, Message: message, Data: data})
}

// respondError maps a domain error to its HTTP status and writes a failure
// envelope. Unrecognized errors become opaque 500s; the detail goes to the
// log, not the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, status, response{Success: false, Message: "internal server error"})
		return
	}
	writeJSON(w, status, response{Success: false, Message: message})
}

func classify(err error) (int, string) {
	var (
		belowMin     *coupon.BelowMinimumError
		insufficient *stock.InsufficientError
		illegal      *order.IllegalTransitionError
		returnWindow *order.ReturnWindowError
		payFailed    *payment.FailedError
	)

	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, stock.ErrNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, order.ErrNotOwner):
		return http.StatusForbidden, "you do not have access to this order"

	case errors.Is(err, cart.ErrVersionConflict),
		errors.Is(err, order.ErrVersionConflict):
		return http.StatusConflict, "the resource was modified concurrently, please retry"

	case errors.As(err, &belowMin),
		errors.As(err, &insufficient),
		errors.As(err, &illegal),
		errors.As(err, &returnWindow),
		errors.As(err, &payFailed),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, cart.ErrEmpty),
		errors.Is(err, cart.ErrUnavailableItems),
		errors.Is(err, cart.ErrNoShippingAddress),
		errors.Is(err, cart.ErrUnknownShippingMethod),
		errors.Is(err, payment.ErrUnsupportedMethod),
		errors.Is(err, payment.ErrNotPayable):
		return http.StatusBadRequest, err.Error()

	default:
		return http.StatusInternalServerError, ""
	}
}

// badRequest writes a 400 with an explicit message, used for malformed input
// before any domain call.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, response{Success: false, Message: message})
}

// decode parses the request body into v.
func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
