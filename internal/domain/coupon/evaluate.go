package coupon

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate validates the coupon against the given subtotal at the given time
// and returns the discount amount. Rules are checked in order: minimum order
// amount, validity window, usage limit. The computed discount is capped by
// MaximumDiscount (when set) and by the subtotal itself, so a coupon can never
// discount an order below zero.
func Evaluate(c *Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if subtotal.LessThan(c.MinimumAmount) {
		return decimal.Zero, &BelowMinimumError{Minimum: c.MinimumAmount}
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return decimal.Zero, ErrExpired
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return decimal.Zero, ErrExpired
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return decimal.Zero, ErrUsageLimitReached
	}

	return discount(c.Type, c.Value, c.MaximumDiscount, subtotal)
}

// Discount re-evaluates a frozen snapshot against a new subtotal. Used by the
// cart aggregate after every subtotal-changing mutation: a coupon that was
// valid at application time can stop qualifying after an item removal, and a
// stale discount must never be retained.
func (s Snapshot) Discount(subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if subtotal.LessThan(s.MinimumAmount) {
		return decimal.Zero, &BelowMinimumError{Minimum: s.MinimumAmount}
	}
	if s.ValidUntil != nil && now.After(*s.ValidUntil) {
		return decimal.Zero, ErrExpired
	}

	return discount(s.Type, s.Value, s.MaximumDiscount, subtotal)
}

func discount(t Type, value, maximum, subtotal decimal.Decimal) (decimal.Decimal, error) {
	var raw decimal.Decimal
	switch t {
	case TypePercentage:
		raw = subtotal.Mul(value).Div(hundred)
	case TypeFixed:
		raw = value
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", t)
	}

	if maximum.IsPositive() {
		raw = decimal.Min(raw, maximum)
	}
	raw = decimal.Min(raw, subtotal)
	if raw.IsNegative() {
		raw = decimal.Zero
	}
	return raw.Round(2), nil
}
