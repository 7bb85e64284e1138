package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a user has no active cart.
	ErrNotFound = errors.New("cart not found")
	// ErrVersionConflict is returned when a save lost an optimistic
	// concurrency race; the caller should reload and retry.
	ErrVersionConflict = errors.New("cart version conflict")
)

// Store is the persistence gateway for carts. Implementations must enforce
// one active cart per user and guard saves with the cart's Version field.
type Store interface {
	// ActiveByUser returns the user's active cart, or ErrNotFound.
	ActiveByUser(ctx context.Context, userID string) (*Cart, error)
	// Save upserts the cart. A cart with Version 0 is inserted; otherwise
	// the write is conditional on the stored version matching, returning
	// ErrVersionConflict on a lost race. On success the cart's Version is
	// advanced in place.
	Save(ctx context.Context, c *Cart) error
	// Deactivate flips the active flag on every cart expiring before the
	// cutoff and reports how many were swept.
	Deactivate(ctx context.Context, cutoff time.Time) (int64, error)
}
