package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLineTotal(t *testing.T) {
	assert.True(t, d("1999.98").Equal(LineTotal(d("999.99"), 2)))
	assert.True(t, decimal.Zero.Equal(LineTotal(d("999.99"), 0)))
}

func TestSubtotal(t *testing.T) {
	items := []Item{
		{FinalUnitPrice: d("1000"), Quantity: 2},
		{FinalUnitPrice: d("49.50"), Quantity: 3},
	}
	assert.True(t, d("2148.50").Equal(Subtotal(items)))

	assert.True(t, decimal.Zero.Equal(Subtotal(nil)))
}

func TestTotals(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		ch    Charges
		want  string
	}{
		{
			name:  "coupon and free shipping over threshold",
			items: []Item{{FinalUnitPrice: d("1000"), Quantity: 2}},
			ch:    Charges{CouponDiscount: d("200")},
			want:  "1800",
		},
		{
			name:  "shipping and tax added",
			items: []Item{{FinalUnitPrice: d("500"), Quantity: 1}},
			ch:    Charges{Shipping: d("100"), Tax: d("25")},
			want:  "625",
		},
		{
			name:  "all adjustments together",
			items: []Item{{FinalUnitPrice: d("300"), Quantity: 2}},
			ch:    Charges{Shipping: d("100"), Tax: d("30"), Discount: d("50"), CouponDiscount: d("80")},
			want:  "600",
		},
		{
			name: "empty cart",
			want: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Totals(tt.items, tt.ch)
			assert.True(t, d(tt.want).Equal(got.Total), "want %s, got %s", tt.want, got.Total)
		})
	}
}

func TestTotalsNegativeNotClamped(t *testing.T) {
	got := Totals([]Item{{FinalUnitPrice: d("100"), Quantity: 1}}, Charges{CouponDiscount: d("250")})
	assert.True(t, got.Negative())
	assert.True(t, d("-150").Equal(got.Total))
}

func TestTotalsStableOnRecomputation(t *testing.T) {
	items := []Item{
		{FinalUnitPrice: d("333.33"), Quantity: 3},
		{FinalUnitPrice: d("0.01"), Quantity: 7},
	}
	ch := Charges{Shipping: d("100"), CouponDiscount: d("99.99")}

	first := Totals(items, ch)
	for i := 0; i < 5; i++ {
		assert.True(t, first.Total.Equal(Totals(items, ch).Total))
	}
}

func TestFinalUnitPrice(t *testing.T) {
	tests := []struct {
		name                   string
		price, percent, amount string
		want                   string
	}{
		{"no discount", "999.99", "0", "0", "999.99"},
		{"percentage", "1000", "15", "0", "850"},
		{"percentage rounds to paisa", "999.99", "10", "0", "899.99"},
		{"flat amount", "1000", "0", "150", "850"},
		{"percentage wins over flat", "1000", "10", "500", "900"},
		{"floored at zero", "100", "0", "250", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FinalUnitPrice(d(tt.price), d(tt.percent), d(tt.amount))
			assert.True(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
