// Package events publishes order lifecycle events for downstream consumers
// (notification delivery, analytics). Publishing is best-effort from the
// caller's perspective; the transaction engine never blocks on a broker.
package events

import (
	"context"
	"time"
)

// Topics.
const (
	TopicOrderCreated       = "orders.created"
	TopicOrderStatusChanged = "orders.status_changed"
)

// Event is a publishable message with its own topic and partition key.
type Event interface {
	Topic() string
	Key() string
}

// OrderCreated is emitted once per successful checkout.
type OrderCreated struct {
	OrderID    string    `json:"order_id"`
	Number     string    `json:"number"`
	UserID     string    `json:"user_id"`
	Total      string    `json:"total"`
	ItemCount  int       `json:"item_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (OrderCreated) Topic() string { return TopicOrderCreated }
func (e OrderCreated) Key() string { return e.OrderID }

// OrderStatusChanged is emitted on every lifecycle transition.
type OrderStatusChanged struct {
	OrderID    string    `json:"order_id"`
	Number     string    `json:"number"`
	UserID     string    `json:"user_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Actor      string    `json:"actor,omitempty"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (OrderStatusChanged) Topic() string { return TopicOrderStatusChanged }
func (e OrderStatusChanged) Key() string { return e.OrderID }

// Publisher delivers events to the broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop is a Publisher that drops everything. Used when no broker is
// configured and in tests.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
