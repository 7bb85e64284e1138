package order

import "fmt"

// Status is an order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
	StatusRefunded   Status = "refunded"
)

// validNext is the legal transition graph. The main line runs
// pending → confirmed → processing → shipped → delivered; cancellation
// branches off before shipment, return branches off after delivery, and
// refund closes out a cancelled or returned order.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {StatusReturned: true},
	StatusCancelled:  {StatusRefunded: true},
	StatusReturned:   {StatusRefunded: true},
	StatusRefunded:   {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// cancellable is the set of states an order may be cancelled from.
var cancellable = map[Status]bool{
	StatusPending:    true,
	StatusConfirmed:  true,
	StatusProcessing: true,
}

// IllegalTransitionError indicates an attempted state-machine move outside
// the legal graph. The order is left unchanged.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order transition: %s -> %s", e.From, e.To)
}
