// Package payment models payment processing as a capability interface with
// one adapter per payment method. All adapters here are mocked gateways;
// production swaps in real clients behind the same interface.
package payment

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/deshikart/deshikart/internal/domain/order"
)

// Method identifies a supported payment method.
type Method string

const (
	MethodBkash        Method = "bkash"
	MethodNagad        Method = "nagad"
	MethodRocket       Method = "rocket"
	MethodCard         Method = "card"
	MethodCOD          Method = "cod"
	MethodBankTransfer Method = "bank_transfer"
)

// Status is the normalized gateway outcome.
type Status string

const (
	// StatusCompleted means funds settled immediately.
	StatusCompleted Status = "completed"
	// StatusPending means settlement happens out-of-band (COD, bank
	// transfer); the order still confirms.
	StatusPending Status = "pending"
	// StatusFailed means the gateway rejected the payment; the order is
	// left untouched.
	StatusFailed Status = "failed"
)

// ErrUnsupportedMethod is returned when no adapter is registered for a method.
var ErrUnsupportedMethod = errors.New("unsupported payment method")

// ErrNotPayable is returned when the order is not in a payable state.
var ErrNotPayable = errors.New("order is not ready for payment")

// FailedError surfaces a gateway rejection to the caller. Stock, cart and
// order state are unchanged when this is returned.
type FailedError struct {
	Gateway string
	Message string
}

func (e *FailedError) Error() string {
	return e.Gateway + " payment failed: " + e.Message
}

// Details carries method-specific input collected from the customer. Adapters
// read only the fields they need.
type Details struct {
	AccountNumber string `json:"accountNumber,omitempty"`
	WalletPIN     string `json:"-"`
	CardNumber    string `json:"-"`
	CardHolder    string `json:"cardHolder,omitempty"`
	Reference     string `json:"reference,omitempty"`
}

// Result is the normalized adapter outcome.
type Result struct {
	Status        Status `json:"status"`
	TransactionID string `json:"transactionId"`
	Gateway       string `json:"gateway"`
	Message       string `json:"message"`
}

// Adapter processes a payment for an order. Implementations must not mutate
// the order; the payment service owns state changes.
type Adapter interface {
	Process(ctx context.Context, o *order.Order, d Details) (Result, error)
}

// Registry resolves a method to its adapter.
type Registry map[Method]Adapter

// NewRegistry returns a registry with the default mocked adapters for every
// supported method.
func NewRegistry() Registry {
	return Registry{
		MethodBkash:        &WalletAdapter{Gateway: "bKash", prefix: "BK"},
		MethodNagad:        &WalletAdapter{Gateway: "Nagad", prefix: "NG"},
		MethodRocket:       &WalletAdapter{Gateway: "Rocket", prefix: "RK"},
		MethodCard:         &CardAdapter{},
		MethodCOD:          &CODAdapter{},
		MethodBankTransfer: &BankTransferAdapter{},
	}
}

// For returns the adapter for a method, or ErrUnsupportedMethod.
func (r Registry) For(m Method) (Adapter, error) {
	a, ok := r[m]
	if !ok {
		return nil, ErrUnsupportedMethod
	}
	return a, nil
}
