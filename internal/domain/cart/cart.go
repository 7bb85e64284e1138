// Package cart implements the mutable per-user shopping cart aggregate.
//
// The aggregate is a plain value type: every mutation is a method that edits
// the struct and re-derives totals through the pricing engine before the
// caller persists it. Nothing in this package touches storage.
package cart

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart/internal/domain/coupon"
	"github.com/deshikart/deshikart/internal/domain/pricing"
)

// DefaultTTL is how long a cart stays active without being recreated.
const DefaultTTL = 30 * 24 * time.Hour

// Shipping methods and their rates.
const (
	ShippingStandard Method = "standard"
	ShippingExpress  Method = "express"
	ShippingPickup   Method = "pickup"
)

var (
	expressRate       = decimal.NewFromInt(200)
	standardRate      = decimal.NewFromInt(100)
	freeShippingAbove = decimal.NewFromInt(1000)
)

var (
	// ErrLineNotFound is returned when an item ID is not present in the cart.
	ErrLineNotFound = errors.New("item not found in cart")
	// ErrUnknownShippingMethod is returned for a shipping method outside the
	// supported set.
	ErrUnknownShippingMethod = errors.New("unknown shipping method")
)

// Method is a shipping method selection.
type Method string

// Address is a denormalized shipping or billing address.
type Address struct {
	Label      string `json:"label,omitempty"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	District   string `json:"district"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Line is one product+variant+quantity entry. Display fields are captured
// from the product at add time so later catalog edits do not rewrite carts.
type Line struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"productId"`
	Name             string          `json:"name"`
	SKU              string          `json:"sku"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	OriginalPrice    decimal.Decimal `json:"originalPrice"`
	DiscountPercent  decimal.Decimal `json:"discountPercent"`
	DiscountAmount   decimal.Decimal `json:"discountAmount"`
	FinalUnitPrice   decimal.Decimal `json:"finalUnitPrice"`
	Size             string          `json:"size,omitempty"`
	Color            string          `json:"color,omitempty"`
	Image            string          `json:"image,omitempty"`
	LineTotal        decimal.Decimal `json:"lineTotal"`
	Available        bool            `json:"available"`
	AvailabilityNote string          `json:"availabilityNote,omitempty"`
}

// Cart is the aggregate root. Monetary fields are derived; callers must not
// set them directly.
type Cart struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
	Lines          []Line           `json:"items"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	CouponCode     string           `json:"couponCode,omitempty"`
	CouponDiscount decimal.Decimal  `json:"couponDiscount"`
	ShippingCost   decimal.Decimal  `json:"shippingCost"`
	TaxAmount      decimal.Decimal  `json:"taxAmount"`
	Total          decimal.Decimal  `json:"total"`
	AppliedCoupon  *coupon.Snapshot `json:"appliedCoupon,omitempty"`
	ShippingTo     *Address         `json:"shippingAddress,omitempty"`
	ShippingMethod Method           `json:"shippingMethod"`
	Active         bool             `json:"active"`
	ExpiresAt      time.Time        `json:"expiresAt"`
	Version        int64            `json:"-"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// New creates an empty active cart for a user expiring DefaultTTL from now.
func New(userID string, now time.Time) *Cart {
	return &Cart{
		ID:             uuid.New().String(),
		UserID:         userID,
		ShippingMethod: ShippingStandard,
		Active:         true,
		ExpiresAt:      now.Add(DefaultTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Expired reports whether the cart is past its expiry timestamp.
func (c *Cart) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ItemCount returns the total unit count across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// AddLine adds a line to the cart, merging quantities when the same
// product+size+color is already present. Returns the resulting line ID.
func (c *Cart) AddLine(l Line, now time.Time) string {
	for i := range c.Lines {
		existing := &c.Lines[i]
		if existing.ProductID == l.ProductID && existing.Size == l.Size && existing.Color == l.Color {
			existing.Quantity += l.Quantity
			c.Recompute(now)
			return existing.ID
		}
	}

	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.Available = true
	c.Lines = append(c.Lines, l)
	c.Recompute(now)
	return l.ID
}

// UpdateQuantity sets a line's quantity. A quantity below 1 removes the line.
func (c *Cart) UpdateQuantity(lineID string, qty int, now time.Time) error {
	if qty < 1 {
		return c.RemoveLine(lineID, now)
	}
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines[i].Quantity = qty
			c.Recompute(now)
			return nil
		}
	}
	return ErrLineNotFound
}

// RemoveLine deletes a line from the cart.
func (c *Cart) RemoveLine(lineID string, now time.Time) error {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.Recompute(now)
			return nil
		}
	}
	return ErrLineNotFound
}

// Clear empties the cart and resets all derived amounts and the coupon.
// Clearing an already-empty cart is a no-op, which keeps checkout retries
// idempotent.
func (c *Cart) Clear(now time.Time) {
	c.Lines = nil
	c.DiscountAmount = decimal.Zero
	c.CouponCode = ""
	c.CouponDiscount = decimal.Zero
	c.AppliedCoupon = nil
	c.TaxAmount = decimal.Zero
	c.Recompute(now)
}

// ApplyCoupon evaluates the coupon against the current subtotal and, on
// success, freezes a snapshot into the cart.
func (c *Cart) ApplyCoupon(cp *coupon.Coupon, now time.Time) error {
	discount, err := coupon.Evaluate(cp, c.Subtotal, now)
	if err != nil {
		return err
	}

	snap := cp.Freeze()
	c.AppliedCoupon = &snap
	c.CouponCode = cp.Code
	c.CouponDiscount = discount
	c.Recompute(now)
	return nil
}

// RemoveCoupon drops the applied coupon and its discount.
func (c *Cart) RemoveCoupon(now time.Time) {
	c.AppliedCoupon = nil
	c.CouponCode = ""
	c.CouponDiscount = decimal.Zero
	c.Recompute(now)
}

// SetShippingAddress records where the order will ship.
func (c *Cart) SetShippingAddress(a Address, now time.Time) {
	c.ShippingTo = &a
	c.Recompute(now)
}

// SetShippingMethod selects the shipping method. The cost is derived inside
// Recompute because the standard rate depends on the current subtotal.
func (c *Cart) SetShippingMethod(m Method, now time.Time) error {
	switch m {
	case ShippingStandard, ShippingExpress, ShippingPickup:
		c.ShippingMethod = m
		c.Recompute(now)
		return nil
	default:
		return ErrUnknownShippingMethod
	}
}

// Recompute re-derives every dependent field: line totals, subtotal, shipping
// cost, the coupon discount (re-validated against the frozen snapshot) and the
// grand total. It runs at the end of every mutation; no cached total survives
// a write.
func (c *Cart) Recompute(now time.Time) {
	items := make([]pricing.Item, len(c.Lines))
	for i := range c.Lines {
		l := &c.Lines[i]
		l.LineTotal = pricing.LineTotal(l.FinalUnitPrice, l.Quantity)
		items[i] = pricing.Item{FinalUnitPrice: l.FinalUnitPrice, Quantity: l.Quantity}
	}
	c.Subtotal = pricing.Subtotal(items)

	c.ShippingCost = c.shippingCost()

	if c.AppliedCoupon != nil {
		d, err := c.AppliedCoupon.Discount(c.Subtotal, now)
		if err != nil {
			// The coupon stopped qualifying; drop it rather than keep a
			// stale discount.
			c.AppliedCoupon = nil
			c.CouponCode = ""
			c.CouponDiscount = decimal.Zero
		} else {
			c.CouponDiscount = d
		}
	}

	summary := pricing.Totals(items, pricing.Charges{
		Shipping:       c.ShippingCost,
		Tax:            c.TaxAmount,
		Discount:       c.DiscountAmount,
		CouponDiscount: c.CouponDiscount,
	})
	c.Total = summary.Total
	c.UpdatedAt = now
}

func (c *Cart) shippingCost() decimal.Decimal {
	if c.Empty() {
		return decimal.Zero
	}
	switch c.ShippingMethod {
	case ShippingExpress:
		return expressRate
	case ShippingPickup:
		return decimal.Zero
	default:
		if c.Subtotal.GreaterThanOrEqual(freeShippingAbove) {
			return decimal.Zero
		}
		return standardRate
	}
}

// UnavailableLines returns the lines currently flagged unavailable.
func (c *Cart) UnavailableLines() []Line {
	var out []Line
	for _, l := range c.Lines {
		if !l.Available {
			out = append(out, l)
		}
	}
	return out
}

// Summary is the condensed cart view returned alongside the cart itself.
type Summary struct {
	ItemCount          int             `json:"itemCount"`
	UniqueProductCount int             `json:"uniqueProductCount"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	CouponDiscount     decimal.Decimal `json:"couponDiscount"`
	ShippingCost       decimal.Decimal `json:"shippingCost"`
	TaxAmount          decimal.Decimal `json:"taxAmount"`
	Total              decimal.Decimal `json:"total"`
	IsEmpty            bool            `json:"isEmpty"`
	IsExpired          bool            `json:"isExpired"`
}

// Summarize builds the summary view as of now.
func (c *Cart) Summarize(now time.Time) Summary {
	total := c.Total
	if total.IsNegative() {
		// Floor at zero on display only; stored totals are never clamped.
		total = decimal.Zero
	}
	return Summary{
		ItemCount:          c.ItemCount(),
		UniqueProductCount: len(c.Lines),
		Subtotal:           c.Subtotal,
		DiscountAmount:     c.DiscountAmount,
		CouponDiscount:     c.CouponDiscount,
		ShippingCost:       c.ShippingCost,
		TaxAmount:          c.TaxAmount,
		Total:              total,
		IsEmpty:            c.Empty(),
		IsExpired:          c.Expired(now),
	}
}
