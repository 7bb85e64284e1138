package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/deshikart/deshikart/internal/domain/order"
)

// txID builds a gateway-style transaction reference, e.g. BK-6f1a2b3c4d.
func txID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
}

// WalletAdapter mocks a mobile wallet gateway (bKash, Nagad, Rocket). The
// happy path settles immediately.
type WalletAdapter struct {
	Gateway string
	prefix  string
}

func (a *WalletAdapter) Process(_ context.Context, _ *order.Order, d Details) (Result, error) {
	if d.AccountNumber == "" {
		return Result{
			Status:  StatusFailed,
			Gateway: a.Gateway,
			Message: "wallet account number required",
		}, nil
	}
	return Result{
		Status:        StatusCompleted,
		TransactionID: txID(a.prefix),
		Gateway:       a.Gateway,
		Message:       "payment processed successfully",
	}, nil
}

// CardAdapter mocks a card gateway.
type CardAdapter struct{}

func (a *CardAdapter) Process(_ context.Context, _ *order.Order, d Details) (Result, error) {
	if d.CardNumber == "" {
		return Result{
			Status:  StatusFailed,
			Gateway: "Card Gateway",
			Message: "card number required",
		}, nil
	}
	return Result{
		Status:        StatusCompleted,
		TransactionID: txID("CD"),
		Gateway:       "Card Gateway",
		Message:       "payment processed successfully",
	}, nil
}

// CODAdapter records a cash-on-delivery intent. Settlement happens at the
// door, so the result is pending.
type CODAdapter struct{}

func (a *CODAdapter) Process(_ context.Context, _ *order.Order, _ Details) (Result, error) {
	return Result{
		Status:        StatusPending,
		TransactionID: txID("COD"),
		Gateway:       "COD",
		Message:       "payment will be collected on delivery",
	}, nil
}

// BankTransferAdapter records a bank transfer intent pending out-of-band
// confirmation.
type BankTransferAdapter struct{}

func (a *BankTransferAdapter) Process(_ context.Context, _ *order.Order, _ Details) (Result, error) {
	return Result{
		Status:        StatusPending,
		TransactionID: txID("BT"),
		Gateway:       "Bank Transfer",
		Message:       "payment pending bank confirmation",
	}, nil
}
