// Package pricing is the pure calculation core: line totals, subtotals and
// grand totals over exact decimals. It holds no state and does no I/O, so
// every caller recomputes from inputs instead of trusting cached amounts.
package pricing

import "github.com/shopspring/decimal"

// Item is the minimal per-line input to a total: the effective unit price
// after product-level discounts, and the quantity.
type Item struct {
	FinalUnitPrice decimal.Decimal
	Quantity       int
}

// Charges are the cart-level adjustments applied on top of the subtotal.
type Charges struct {
	Shipping       decimal.Decimal
	Tax            decimal.Decimal
	Discount       decimal.Decimal
	CouponDiscount decimal.Decimal
}

// Summary is the derived money view of a cart or order.
type Summary struct {
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// Negative reports whether discounts exceeded the charged amounts. The total
// is deliberately not clamped here; presentation layers decide how to show it.
func (s Summary) Negative() bool {
	return s.Total.IsNegative()
}

// LineTotal multiplies the effective unit price by the quantity.
func LineTotal(finalUnitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return finalUnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Subtotal sums the line totals of all items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(LineTotal(it.FinalUnitPrice, it.Quantity))
	}
	return sum
}

// Totals derives the full summary:
//
//	total = subtotal + shipping + tax - discount - couponDiscount
func Totals(items []Item, ch Charges) Summary {
	subtotal := Subtotal(items)
	total := subtotal.
		Add(ch.Shipping).
		Add(ch.Tax).
		Sub(ch.Discount).
		Sub(ch.CouponDiscount)
	return Summary{Subtotal: subtotal, Total: total}
}

// FinalUnitPrice derives the effective unit price from a catalog price and its
// product-level discount. A percentage discount takes precedence over a flat
// amount; the result never drops below zero.
func FinalUnitPrice(unitPrice, discountPercent, discountAmount decimal.Decimal) decimal.Decimal {
	final := unitPrice
	switch {
	case discountPercent.IsPositive():
		final = unitPrice.Sub(unitPrice.Mul(discountPercent).Div(decimal.NewFromInt(100))).Round(2)
	case discountAmount.IsPositive():
		final = unitPrice.Sub(discountAmount)
	}
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}
