package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/deshikart/deshikart/internal/domain/stock"
	"github.com/deshikart/deshikart/internal/events"
)

// DefaultReturnWindow is how long after delivery a return may be requested.
const DefaultReturnWindow = 14 * 24 * time.Hour

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ReturnWindowError indicates the return window has closed.
type ReturnWindowError struct {
	Deadline time.Time
}

func (e *ReturnWindowError) Error() string {
	return "return window closed on " + e.Deadline.Format("2006-01-02")
}

// Tracking is the shipment-tracking view of an order.
type Tracking struct {
	Number      string         `json:"number"`
	Status      Status         `json:"status"`
	History     []HistoryEntry `json:"statusHistory"`
	Courier     *Courier       `json:"courier,omitempty"`
	ShippedAt   *time.Time     `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time     `json:"deliveredAt,omitempty"`
}

// Service drives the order lifecycle after checkout: customer reads,
// cancellation, returns, and the admin status updates the fulfilment flow
// feeds in.
type Service struct {
	orders Repository
	ledger stock.Ledger
	events events.Publisher
	window time.Duration
	now    func() time.Time
}

// NewService creates an order service. A non-positive returnWindow falls back
// to DefaultReturnWindow.
func NewService(orders Repository, ledger stock.Ledger, pub events.Publisher, returnWindow time.Duration) *Service {
	if returnWindow <= 0 {
		returnWindow = DefaultReturnWindow
	}
	return &Service{
		orders: orders,
		ledger: ledger,
		events: pub,
		window: returnWindow,
		now:    time.Now,
	}
}

// Get returns the user's order, or ErrNotOwner when it belongs to someone
// else.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// List returns a page of the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListByUser(ctx, userID, limit, offset)
}

// Track returns the tracking view of the user's order.
func (s *Service) Track(ctx context.Context, userID, orderID string) (*Tracking, error) {
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return &Tracking{
		Number:      o.Number,
		Status:      o.Status,
		History:     o.History,
		Courier:     o.Courier,
		ShippedAt:   o.ShippedAt,
		DeliveredAt: o.DeliveredAt,
	}, nil
}

// Cancel cancels the user's order and returns its units to the stock ledger.
// Orders already handed to the courier cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, userID, orderID, reason string) (*Order, error) {
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if err := o.Transition(StatusCancelled, reason, "customer", s.now()); err != nil {
		return nil, err
	}
	o.CancellationReason = reason

	// Restock first: a cancelled order persisted without its release would
	// strand the units forever, while a failed save after the release is
	// compensated by taking the units back.
	lines := o.StockLines()
	if err := s.ledger.ReleaseLines(ctx, lines); err != nil {
		return nil, errors.Wrap(err, "release stock")
	}
	if err := s.orders.Update(ctx, o); err != nil {
		s.rereserve(ctx, lines)
		return nil, errors.Wrap(err, "update order")
	}

	s.publishStatusChange(ctx, o, from, "customer", reason)
	return o, nil
}

// rereserve compensates a stock release whose accompanying order save failed.
// Best-effort: a unit sold in the gap stays sold.
func (s *Service) rereserve(ctx context.Context, lines []stock.Line) {
	for _, l := range lines {
		_ = s.ledger.Reserve(ctx, l.ProductID, l.Quantity)
	}
}

// RequestReturn moves a delivered order to returned, provided the return
// window is still open.
func (s *Service) RequestReturn(ctx context.Context, userID, orderID, reason string) (*Order, error) {
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if deadline, ok := o.ReturnableUntil(s.window); ok && now.After(deadline) {
		return nil, &ReturnWindowError{Deadline: deadline}
	}

	from := o.Status
	if err := o.Transition(StatusReturned, reason, "customer", now); err != nil {
		return nil, err
	}
	o.ReturnReason = reason

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	s.publishStatusChange(ctx, o, from, "customer", reason)
	return o, nil
}

// UpdateStatus applies an admin-driven transition. Shipping accepts courier
// details; a move to cancelled restocks; a move to refunded settles the
// refund amount.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status, note, actor string, courier *Courier) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if err := o.Transition(to, note, actor, s.now()); err != nil {
		return nil, err
	}

	switch to {
	case StatusShipped:
		if courier != nil {
			o.Courier = courier
		}
	case StatusRefunded:
		o.PaymentStatus = PaymentRefunded
		o.RefundAmount = o.Total
	}

	if to == StatusCancelled {
		lines := o.StockLines()
		if err := s.ledger.ReleaseLines(ctx, lines); err != nil {
			return nil, errors.Wrap(err, "release stock")
		}
		if err := s.orders.Update(ctx, o); err != nil {
			s.rereserve(ctx, lines)
			return nil, errors.Wrap(err, "update order")
		}
	} else if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	s.publishStatusChange(ctx, o, from, actor, note)
	return o, nil
}

func (s *Service) publishStatusChange(ctx context.Context, o *Order, from Status, actor, note string) {
	_ = s.events.Publish(ctx, events.OrderStatusChanged{
		OrderID:    o.ID,
		Number:     o.Number,
		UserID:     o.UserID,
		From:       string(from),
		To:         string(o.Status),
		Actor:      actor,
		Note:       note,
		OccurredAt: s.now(),
	})
}
