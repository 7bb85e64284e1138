// Package coupon defines coupon rules and their evaluation against a cart
// subtotal.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage applies a percentage of the subtotal, optionally capped.
	TypePercentage Type = "percentage"
	// TypeFixed applies a flat amount capped at the subtotal.
	TypeFixed Type = "fixed"
)

var (
	// ErrNotFound is returned when no active coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when a coupon is outside its validity window.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitReached is returned when a coupon has exhausted its uses.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// BelowMinimumError indicates the cart subtotal does not meet the coupon's
// minimum order amount.
type BelowMinimumError struct {
	Minimum decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return "minimum order amount of " + e.Minimum.String() + " required"
}

// Coupon is a named discount rule with eligibility constraints.
type Coupon struct {
	Code            string          `json:"code"`
	Type            Type            `json:"type"`
	Value           decimal.Decimal `json:"value"`
	MinimumAmount   decimal.Decimal `json:"minimumAmount"`
	MaximumDiscount decimal.Decimal `json:"maximumDiscount"` // zero means uncapped
	ValidFrom       *time.Time      `json:"validFrom,omitempty"`
	ValidUntil      *time.Time      `json:"validUntil,omitempty"`
	UsageLimit      int             `json:"usageLimit"` // zero means unlimited
	UsedCount       int             `json:"usedCount"`
	Active          bool            `json:"active"`
	Description     string          `json:"description"`
}

// Snapshot is the subset of a coupon frozen into a cart or order at the moment
// of application. Later edits to the coupon must not change recorded discounts,
// so re-validation on cart mutation runs against the snapshot, not the source.
type Snapshot struct {
	Code            string          `json:"code"`
	Type            Type            `json:"type"`
	Value           decimal.Decimal `json:"value"`
	MinimumAmount   decimal.Decimal `json:"minimumAmount"`
	MaximumDiscount decimal.Decimal `json:"maximumDiscount"`
	ValidUntil      *time.Time      `json:"validUntil,omitempty"`
}

// Freeze captures the coupon fields relevant for later re-validation.
func (c *Coupon) Freeze() Snapshot {
	return Snapshot{
		Code:            c.Code,
		Type:            c.Type,
		Value:           c.Value,
		MinimumAmount:   c.MinimumAmount,
		MaximumDiscount: c.MaximumDiscount,
		ValidUntil:      c.ValidUntil,
	}
}

// Repository provides lookup and usage accounting for coupons.
type Repository interface {
	// FindByCode returns the active coupon for a code (case-insensitive),
	// or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// IncrementUses atomically bumps the usage counter for a code.
	IncrementUses(ctx context.Context, code string) error
}
