// Package order defines the immutable order record created at checkout and
// the lifecycle state machine that governs its status.
package order

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart/internal/domain/cart"
	"github.com/deshikart/deshikart/internal/domain/coupon"
	"github.com/deshikart/deshikart/internal/domain/stock"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrNotOwner is returned when a user acts on another user's order.
	ErrNotOwner = errors.New("order belongs to another user")
	// ErrVersionConflict is returned when an update lost an optimistic
	// concurrency race.
	ErrVersionConflict = errors.New("order version conflict")
)

// PaymentStatus tracks settlement separately from the order status: a
// confirmed COD order still has a pending payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Item is a frozen copy of a cart line. It references the product by ID only;
// display fields are denormalized so later product edits never alter history.
type Item struct {
	ProductID       string          `json:"productId"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	FinalUnitPrice  decimal.Decimal `json:"finalUnitPrice"`
	Size            string          `json:"size,omitempty"`
	Color           string          `json:"color,omitempty"`
	Image           string          `json:"image,omitempty"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
}

// CustomerInfo is a denormalized snapshot of the ordering user.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Courier holds shipment tracking details set when the order ships.
type Courier struct {
	Name           string `json:"name"`
	TrackingNumber string `json:"trackingNumber"`
	TrackingURL    string `json:"trackingUrl,omitempty"`
}

// PaymentInfo records the outcome of payment processing.
type PaymentInfo struct {
	TransactionID string    `json:"transactionId"`
	Gateway       string    `json:"gateway"`
	ProcessedAt   time.Time `json:"processedAt"`
	Response      string    `json:"response,omitempty"`
}

// HistoryEntry is one append-only status log record.
type HistoryEntry struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
	Actor  string    `json:"actor,omitempty"`
}

// Order is created once from exactly one cart. The core fields (items,
// amounts, addresses, payment method) are immutable after creation; only the
// lifecycle fields change, and only through Transition.
type Order struct {
	ID           string       `json:"id"`
	Number       string       `json:"number"`
	UserID       string       `json:"userId"`
	CustomerInfo CustomerInfo `json:"customerInfo"`
	Items        []Item       `json:"items"`

	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	CouponCode     string           `json:"couponCode,omitempty"`
	CouponDiscount decimal.Decimal  `json:"couponDiscount"`
	AppliedCoupon  *coupon.Snapshot `json:"appliedCoupon,omitempty"`
	ShippingCost   decimal.Decimal  `json:"shippingCost"`
	TaxAmount      decimal.Decimal  `json:"taxAmount"`
	Total          decimal.Decimal  `json:"total"`

	ShippingAddress cart.Address `json:"shippingAddress"`
	BillingAddress  cart.Address `json:"billingAddress"`
	ShippingMethod  cart.Method  `json:"shippingMethod"`

	PaymentMethod string        `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Payment       *PaymentInfo  `json:"payment,omitempty"`

	Status  Status         `json:"status"`
	History []HistoryEntry `json:"statusHistory"`
	Courier *Courier       `json:"courier,omitempty"`

	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	ReturnedAt  *time.Time `json:"returnedAt,omitempty"`
	RefundedAt  *time.Time `json:"refundedAt,omitempty"`

	CancellationReason string          `json:"cancellationReason,omitempty"`
	ReturnReason       string          `json:"returnReason,omitempty"`
	RefundAmount       decimal.Decimal `json:"refundAmount"`

	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewNumber generates a human-facing order number: DK + yymmdd + 6 random
// digits. Uniqueness is enforced by the storage layer's unique index.
func NewNumber(now time.Time) string {
	return fmt.Sprintf("DK%s%06d", now.Format("060102"), rand.Intn(1_000_000))
}

// Transition moves the order to a new status, appending a history entry and
// stamping the per-state timestamp on first entry. Any move outside the legal
// graph fails with *IllegalTransitionError and leaves the order unchanged.
func (o *Order) Transition(to Status, note, actor string, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return &IllegalTransitionError{From: o.Status, To: to}
	}

	o.Status = to
	o.History = append(o.History, HistoryEntry{Status: to, At: now, Note: note, Actor: actor})

	stamp := func(field **time.Time) {
		if *field == nil {
			t := now
			*field = &t
		}
	}
	switch to {
	case StatusConfirmed:
		stamp(&o.ConfirmedAt)
	case StatusProcessing:
		stamp(&o.ProcessedAt)
	case StatusShipped:
		stamp(&o.ShippedAt)
	case StatusDelivered:
		stamp(&o.DeliveredAt)
	case StatusCancelled:
		stamp(&o.CancelledAt)
	case StatusReturned:
		stamp(&o.ReturnedAt)
	case StatusRefunded:
		stamp(&o.RefundedAt)
	}
	return nil
}

// CanCancel reports whether the order is in a cancellable state.
func (o *Order) CanCancel() bool {
	return cancellable[o.Status]
}

// ReturnableUntil returns the end of the return window, valid only when the
// order has been delivered.
func (o *Order) ReturnableUntil(window time.Duration) (time.Time, bool) {
	if o.Status != StatusDelivered || o.DeliveredAt == nil {
		return time.Time{}, false
	}
	return o.DeliveredAt.Add(window), true
}

// StockLines returns product/quantity pairs for ledger reserve at checkout
// and release on cancellation.
func (o *Order) StockLines() []stock.Line {
	lines := make([]stock.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = stock.Line{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists a new order.
	Create(ctx context.Context, o *Order) error
	// Get returns an order by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Order, error)
	// ListByUser returns a page of the user's orders, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	// Update saves lifecycle mutations, guarded by the order's Version;
	// returns ErrVersionConflict on a lost race.
	Update(ctx context.Context, o *Order) error
}
