// Package stock defines the stock ledger: per-product (and per-variant)
// available quantity with atomic reserve and release operations.
package stock

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no stock record exists for a product/variant.
var ErrNotFound = errors.New("stock record not found")

// InsufficientError indicates a reservation asked for more units than are
// available. Available is a best-effort reading taken after the failed
// conditional update; under concurrency it may already be stale.
type InsufficientError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Record is the ledger entry for one product or variant. Size and color are
// empty strings on the base record.
type Record struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// InStock reports whether any units are available.
func (r Record) InStock() bool {
	return r.Quantity > 0
}

// Line pairs a product with a quantity for bulk reserve/release.
type Line struct {
	ProductID string
	Quantity  int
}

// Ledger tracks available quantity. Reserve must be implemented as a single
// conditional update (decrement iff quantity >= n), never a read followed by
// an unguarded write: concurrent checkouts on the same product must not both
// observe the pre-decrement quantity and both succeed.
type Ledger interface {
	// Available returns the quantity on hand for a product/variant,
	// or ErrNotFound.
	Available(ctx context.Context, productID, size, color string) (int, error)
	// Reserve decrements the base record by qty, failing with
	// *InsufficientError when fewer than qty units remain.
	Reserve(ctx context.Context, productID string, qty int) error
	// Release adds qty units back to the base record.
	Release(ctx context.Context, productID string, qty int) error
	// ReleaseLines releases every line, atomically where the backing store
	// allows. Used for cancellation and checkout compensation.
	ReleaseLines(ctx context.Context, lines []Line) error
}
