package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/deshikart/deshikart/internal/domain/order"
	"github.com/deshikart/deshikart/internal/events"
)

// Service processes payments for pending orders and drives the resulting
// order confirmation.
type Service struct {
	orders   order.Repository
	registry Registry
	events   events.Publisher
	now      func() time.Time
}

// NewService creates a payment service.
func NewService(orders order.Repository, registry Registry, pub events.Publisher) *Service {
	return &Service{
		orders:   orders,
		registry: registry,
		events:   pub,
		now:      time.Now,
	}
}

// Process runs the payment for the user's pending order. A completed or
// pending gateway result confirms the order; the payment status records the
// actual settlement state. A failed result returns *FailedError and leaves
// the order exactly as it was.
func (s *Service) Process(ctx context.Context, userID, orderID string, method Method, d Details) (*order.Order, Result, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, Result{}, err
	}
	if o.UserID != userID {
		return nil, Result{}, order.ErrNotOwner
	}
	if o.Status != order.StatusPending {
		return nil, Result{}, ErrNotPayable
	}

	adapter, err := s.registry.For(method)
	if err != nil {
		return nil, Result{}, err
	}

	res, err := adapter.Process(ctx, o, d)
	if err != nil {
		return nil, Result{}, errors.Wrap(err, "gateway")
	}
	if res.Status == StatusFailed {
		return nil, res, &FailedError{Gateway: res.Gateway, Message: res.Message}
	}

	now := s.now()
	switch res.Status {
	case StatusCompleted:
		o.PaymentStatus = order.PaymentCompleted
	default:
		o.PaymentStatus = order.PaymentPending
	}
	o.Payment = &order.PaymentInfo{
		TransactionID: res.TransactionID,
		Gateway:       res.Gateway,
		ProcessedAt:   now,
		Response:      res.Message,
	}

	note := "payment " + string(res.Status) + " via " + res.Gateway
	if err := o.Transition(order.StatusConfirmed, note, "system", now); err != nil {
		return nil, Result{}, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, Result{}, errors.Wrap(err, "update order")
	}

	_ = s.events.Publish(ctx, events.OrderStatusChanged{
		OrderID:    o.ID,
		Number:     o.Number,
		UserID:     o.UserID,
		From:       string(order.StatusPending),
		To:         string(order.StatusConfirmed),
		Actor:      "system",
		Note:       note,
		OccurredAt: now,
	})

	return o, res, nil
}
