// Package checkout converts a validated cart into an order. The conversion
// spans two stores (cart document, order row) plus the stock ledger, so the
// orchestrator compensates explicitly instead of relying on a distributed
// transaction: reservations taken before a failure are released before the
// error is returned.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/deshikart/deshikart/internal/domain/cart"
	"github.com/deshikart/deshikart/internal/domain/coupon"
	"github.com/deshikart/deshikart/internal/domain/order"
	"github.com/deshikart/deshikart/internal/domain/stock"
	"github.com/deshikart/deshikart/internal/events"
)

// Request carries the checkout input collected from the customer. The cart
// itself supplies items, amounts and the shipping address.
type Request struct {
	Customer       order.CustomerInfo
	PaymentMethod  string
	BillingAddress *cart.Address // defaults to the shipping address
}

// Service orchestrates cart-to-order conversion.
type Service struct {
	carts   *cart.Service
	orders  order.Repository
	ledger  stock.Ledger
	coupons coupon.Repository
	events  events.Publisher
	now     func() time.Time
}

// NewService creates a checkout service.
func NewService(carts *cart.Service, orders order.Repository, ledger stock.Ledger, coupons coupon.Repository, pub events.Publisher) *Service {
	return &Service{
		carts:   carts,
		orders:  orders,
		ledger:  ledger,
		coupons: coupons,
		events:  pub,
		now:     time.Now,
	}
}

// Checkout validates the user's cart, reserves stock line by line, persists
// the order snapshot and clears the cart. Any failure after the first
// reservation releases everything reserved so far; the cart is left intact
// and the customer can retry.
func (s *Service) Checkout(ctx context.Context, userID string, req Request) (*order.Order, error) {
	c, err := s.carts.Validate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	var reserved []stock.Line
	release := func() {
		if len(reserved) > 0 {
			_ = s.ledger.ReleaseLines(ctx, reserved)
		}
	}
	for _, l := range c.Lines {
		if err := s.ledger.Reserve(ctx, l.ProductID, l.Quantity); err != nil {
			release()
			return nil, err
		}
		reserved = append(reserved, stock.Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	o := buildOrder(c, req, now)
	if err := s.orders.Create(ctx, o); err != nil {
		release()
		return nil, errors.Wrap(err, "create order")
	}

	// The coupon use is counted only now that an order actually carries it;
	// applying and removing a coupon in the cart costs nothing. The order is
	// already persisted, so a failed bump must not fail the checkout.
	if o.CouponCode != "" {
		_ = s.coupons.IncrementUses(ctx, o.CouponCode)
	}

	// The order exists; a failed cart clear must not fail the checkout. The
	// sweeper deactivates leftovers eventually.
	_ = s.carts.Clear(ctx, userID)

	_ = s.events.Publish(ctx, events.OrderCreated{
		OrderID:    o.ID,
		Number:     o.Number,
		UserID:     o.UserID,
		Total:      o.Total.String(),
		ItemCount:  len(o.Items),
		OccurredAt: now,
	})

	return o, nil
}

// buildOrder freezes the cart into an immutable order snapshot in pending
// state with payment not yet processed.
func buildOrder(c *cart.Cart, req Request, now time.Time) *order.Order {
	items := make([]order.Item, len(c.Lines))
	for i, l := range c.Lines {
		items[i] = order.Item{
			ProductID:       l.ProductID,
			Name:            l.Name,
			SKU:             l.SKU,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			OriginalPrice:   l.OriginalPrice,
			DiscountPercent: l.DiscountPercent,
			DiscountAmount:  l.DiscountAmount,
			FinalUnitPrice:  l.FinalUnitPrice,
			Size:            l.Size,
			Color:           l.Color,
			Image:           l.Image,
			LineTotal:       l.LineTotal,
		}
	}

	billing := c.ShippingTo
	if req.BillingAddress != nil {
		billing = req.BillingAddress
	}

	return &order.Order{
		ID:           uuid.New().String(),
		Number:       order.NewNumber(now),
		UserID:       c.UserID,
		CustomerInfo: req.Customer,
		Items:        items,

		Subtotal:       c.Subtotal,
		DiscountAmount: c.DiscountAmount,
		CouponCode:     c.CouponCode,
		CouponDiscount: c.CouponDiscount,
		AppliedCoupon:  c.AppliedCoupon,
		ShippingCost:   c.ShippingCost,
		TaxAmount:      c.TaxAmount,
		Total:          c.Total,

		ShippingAddress: *c.ShippingTo,
		BillingAddress:  *billing,
		ShippingMethod:  c.ShippingMethod,

		PaymentMethod: req.PaymentMethod,
		PaymentStatus: order.PaymentPending,

		Status: order.StatusPending,
		History: []order.HistoryEntry{
			{Status: order.StatusPending, At: now, Actor: "system", Note: "order placed"},
		},

		CreatedAt: now,
	}
}
