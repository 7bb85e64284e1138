package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshikart/deshikart/internal/domain/coupon"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func line(productID, size string, qty int, price string) Line {
	return Line{
		ProductID:      productID,
		Name:           "Item " + productID,
		SKU:            "SKU-" + productID,
		Quantity:       qty,
		UnitPrice:      d(price),
		OriginalPrice:  d(price),
		FinalUnitPrice: d(price),
		Size:           size,
	}
}

// checkInvariant asserts subtotal = Σ line totals and
// total = subtotal + shipping + tax − discount − couponDiscount.
func checkInvariant(t *testing.T, c *Cart) {
	t.Helper()
	sum := decimal.Zero
	for _, l := range c.Lines {
		assert.True(t, l.LineTotal.Equal(l.FinalUnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))),
			"line %s total", l.ID)
		sum = sum.Add(l.LineTotal)
	}
	assert.True(t, c.Subtotal.Equal(sum), "subtotal %s != Σ lines %s", c.Subtotal, sum)

	want := c.Subtotal.Add(c.ShippingCost).Add(c.TaxAmount).
		Sub(c.DiscountAmount).Sub(c.CouponDiscount)
	assert.True(t, c.Total.Equal(want), "total %s != %s", c.Total, want)
}

func TestNew(t *testing.T) {
	c := New("user-1", now)
	assert.True(t, c.Active)
	assert.Equal(t, now.Add(DefaultTTL), c.ExpiresAt)
	assert.False(t, c.Expired(now))
	assert.True(t, c.Expired(now.Add(DefaultTTL+time.Minute)))
	assert.True(t, c.Empty())
	checkInvariant(t, c)
}

func TestAddLineMergesSameVariant(t *testing.T) {
	c := New("user-1", now)

	id1 := c.AddLine(line("p1", "M", 1, "500"), now)
	id2 := c.AddLine(line("p1", "M", 2, "500"), now)
	id3 := c.AddLine(line("p1", "L", 1, "500"), now)

	assert.Equal(t, id1, id2, "same product+variant merges")
	assert.NotEqual(t, id1, id3, "different size is a separate line")
	require.Len(t, c.Lines, 2)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.Equal(t, 4, c.ItemCount())
	checkInvariant(t, c)
}

func TestUpdateQuantity(t *testing.T) {
	c := New("user-1", now)
	id := c.AddLine(line("p1", "", 2, "300"), now)

	require.NoError(t, c.UpdateQuantity(id, 5, now))
	assert.Equal(t, 5, c.Lines[0].Quantity)
	checkInvariant(t, c)

	// Below 1 routes to removal.
	require.NoError(t, c.UpdateQuantity(id, 0, now))
	assert.True(t, c.Empty())

	assert.ErrorIs(t, c.UpdateQuantity("missing", 3, now), ErrLineNotFound)
}

func TestRemoveLine(t *testing.T) {
	c := New("user-1", now)
	id := c.AddLine(line("p1", "", 1, "300"), now)
	c.AddLine(line("p2", "", 1, "200"), now)

	require.NoError(t, c.RemoveLine(id, now))
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "p2", c.Lines[0].ProductID)
	checkInvariant(t, c)

	assert.ErrorIs(t, c.RemoveLine(id, now), ErrLineNotFound)
}

func TestApplyCouponScenario(t *testing.T) {
	// Unit price 1000 x2 with a 10% coupon (minimum 1500):
	// subtotal 2000, discount 200, total 1800 with pickup shipping.
	c := New("user-1", now)
	c.AddLine(line("p1", "", 2, "1000"), now)
	require.NoError(t, c.SetShippingMethod(ShippingPickup, now))

	cp := &coupon.Coupon{
		Code: "SAVE10", Type: coupon.TypePercentage,
		Value: d("10"), MinimumAmount: d("1500"),
	}
	require.NoError(t, c.ApplyCoupon(cp, now))

	assert.True(t, c.Subtotal.Equal(d("2000")))
	assert.True(t, c.CouponDiscount.Equal(d("200")))
	assert.True(t, c.Total.Equal(d("1800")))
	assert.Equal(t, "SAVE10", c.CouponCode)
	require.NotNil(t, c.AppliedCoupon)
	checkInvariant(t, c)
}

func TestApplyCouponBelowMinimum(t *testing.T) {
	c := New("user-1", now)
	c.AddLine(line("p1", "", 1, "1000"), now)

	cp := &coupon.Coupon{
		Code: "SAVE10", Type: coupon.TypePercentage,
		Value: d("10"), MinimumAmount: d("1500"),
	}
	var bm *coupon.BelowMinimumError
	require.ErrorAs(t, c.ApplyCoupon(cp, now), &bm)
	assert.Nil(t, c.AppliedCoupon)
	assert.True(t, c.CouponDiscount.IsZero())
}

func TestCouponDroppedWhenSubtotalFallsBelowMinimum(t *testing.T) {
	c := New("user-1", now)
	keep := c.AddLine(line("p1", "", 1, "1000"), now)
	drop := c.AddLine(line("p2", "", 1, "1000"), now)

	cp := &coupon.Coupon{
		Code: "SAVE10", Type: coupon.TypePercentage,
		Value: d("10"), MinimumAmount: d("1500"),
	}
	require.NoError(t, c.ApplyCoupon(cp, now))
	assert.True(t, c.CouponDiscount.Equal(d("200")))

	// Removing an item drops the subtotal under the coupon minimum: the
	// discount must not be retained.
	require.NoError(t, c.RemoveLine(drop, now))
	assert.Nil(t, c.AppliedCoupon)
	assert.Empty(t, c.CouponCode)
	assert.True(t, c.CouponDiscount.IsZero())
	checkInvariant(t, c)

	_ = keep
}

func TestCouponDiscountRecomputedOnQuantityChange(t *testing.T) {
	c := New("user-1", now)
	id := c.AddLine(line("p1", "", 2, "1000"), now)

	cp := &coupon.Coupon{Code: "SAVE10", Type: coupon.TypePercentage, Value: d("10")}
	require.NoError(t, c.ApplyCoupon(cp, now))
	assert.True(t, c.CouponDiscount.Equal(d("200")))

	require.NoError(t, c.UpdateQuantity(id, 3, now))
	assert.True(t, c.CouponDiscount.Equal(d("300")), "discount must track subtotal, got %s", c.CouponDiscount)
	checkInvariant(t, c)
}

func TestRemoveCoupon(t *testing.T) {
	c := New("user-1", now)
	c.AddLine(line("p1", "", 2, "1000"), now)
	cp := &coupon.Coupon{Code: "SAVE10", Type: coupon.TypePercentage, Value: d("10")}
	require.NoError(t, c.ApplyCoupon(cp, now))

	c.RemoveCoupon(now)
	assert.Nil(t, c.AppliedCoupon)
	assert.True(t, c.CouponDiscount.IsZero())
	checkInvariant(t, c)
}

func TestShippingMethodRates(t *testing.T) {
	tests := []struct {
		name     string
		method   Method
		subtotal string
		want     string
	}{
		{"express is a flat rate", ShippingExpress, "500", "200"},
		{"express flat above threshold too", ShippingExpress, "5000", "200"},
		{"standard below threshold", ShippingStandard, "500", "100"},
		{"standard free above threshold", ShippingStandard, "1000", "0"},
		{"pickup is free", ShippingPickup, "500", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("user-1", now)
			c.AddLine(line("p1", "", 1, tt.subtotal), now)
			require.NoError(t, c.SetShippingMethod(tt.method, now))
			assert.True(t, c.ShippingCost.Equal(d(tt.want)), "got %s", c.ShippingCost)
			checkInvariant(t, c)
		})
	}

	c := New("user-1", now)
	assert.ErrorIs(t, c.SetShippingMethod("drone", now), ErrUnknownShippingMethod)
}

func TestClearIsIdempotent(t *testing.T) {
	c := New("user-1", now)
	c.AddLine(line("p1", "", 2, "1000"), now)
	cp := &coupon.Coupon{Code: "SAVE10", Type: coupon.TypePercentage, Value: d("10")}
	require.NoError(t, c.ApplyCoupon(cp, now))

	c.Clear(now)
	assert.True(t, c.Empty())
	assert.True(t, c.Subtotal.IsZero())
	assert.True(t, c.Total.IsZero())
	assert.Nil(t, c.AppliedCoupon)

	c.Clear(now) // second clear is a no-op
	assert.True(t, c.Empty())
	checkInvariant(t, c)
}

func TestSummarize(t *testing.T) {
	c := New("user-1", now)
	c.AddLine(line("p1", "M", 2, "450"), now)
	c.AddLine(line("p2", "", 1, "300"), now)

	s := c.Summarize(now)
	assert.Equal(t, 3, s.ItemCount)
	assert.Equal(t, 2, s.UniqueProductCount)
	assert.True(t, s.Subtotal.Equal(d("1200")))
	assert.False(t, s.IsEmpty)
	assert.False(t, s.IsExpired)

	// Display total floors at zero even when the stored total is negative.
	c.DiscountAmount = d("5000")
	c.Recompute(now)
	assert.True(t, c.Total.IsNegative())
	assert.True(t, c.Summarize(now).Total.IsZero())
}
