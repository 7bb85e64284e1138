package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deshikart/deshikart/internal/domain/cart"
	"github.com/deshikart/deshikart/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (
		id, number, user_id, customer_info, items,
		subtotal, discount_amount, coupon_code, coupon_discount, applied_coupon,
		shipping_cost, tax_amount, total,
		shipping_address, billing_address, shipping_method,
		payment_method, payment_status, status, status_history,
		version, created_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13,
		$14, $15, $16,
		$17, $18, $19, $20,
		1, $21
	)`

	orderColumns = `id, number, user_id, customer_info, items,
		subtotal, discount_amount, coupon_code, coupon_discount, applied_coupon,
		shipping_cost, tax_amount, total,
		shipping_address, billing_address, shipping_method,
		payment_method, payment_status, payment_info,
		status, status_history, courier,
		confirmed_at, processed_at, shipped_at, delivered_at,
		cancelled_at, returned_at, refunded_at,
		cancellation_reason, return_reason, refund_amount,
		version, created_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	// Lifecycle fields only; the immutable core set at creation never changes.
	updateOrderSQL = `UPDATE orders SET
		payment_status = $2, payment_info = $3,
		status = $4, status_history = $5, courier = $6,
		confirmed_at = $7, processed_at = $8, shipped_at = $9, delivered_at = $10,
		cancelled_at = $11, returned_at = $12, refunded_at = $13,
		cancellation_reason = $14, return_reason = $15, refund_amount = $16,
		version = version + 1
	WHERE id = $1 AND version = $17`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Nested
// structures (items, addresses, history) are serialized to JSONB columns;
// money stays in NUMERIC columns so the database can aggregate it.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order snapshot.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	customerJSON, err := json.Marshal(o.CustomerInfo)
	if err != nil {
		return fmt.Errorf("marshaling customer info: %w", err)
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	couponJSON, err := marshalNullable(o.AppliedCoupon)
	if err != nil {
		return fmt.Errorf("marshaling applied coupon: %w", err)
	}
	shippingJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshaling billing address: %w", err)
	}
	historyJSON, err := json.Marshal(o.History)
	if err != nil {
		return fmt.Errorf("marshaling status history: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.Number, o.UserID, customerJSON, itemsJSON,
		o.Subtotal, o.DiscountAmount, o.CouponCode, o.CouponDiscount, couponJSON,
		o.ShippingCost, o.TaxAmount, o.Total,
		shippingJSON, billingJSON, string(o.ShippingMethod),
		o.PaymentMethod, string(o.PaymentStatus), string(o.Status), historyJSON,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	o.Version = 1
	return nil
}

// Get returns an order by ID.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns a page of a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Update saves lifecycle mutations. The write is conditional on the version
// the order was loaded at; zero rows affected means a concurrent update won
// and the caller must reload.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	paymentJSON, err := marshalNullable(o.Payment)
	if err != nil {
		return fmt.Errorf("marshaling payment info: %w", err)
	}
	historyJSON, err := json.Marshal(o.History)
	if err != nil {
		return fmt.Errorf("marshaling status history: %w", err)
	}
	courierJSON, err := marshalNullable(o.Courier)
	if err != nil {
		return fmt.Errorf("marshaling courier: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID,
		string(o.PaymentStatus), paymentJSON,
		string(o.Status), historyJSON, courierJSON,
		o.ConfirmedAt, o.ProcessedAt, o.ShippedAt, o.DeliveredAt,
		o.CancelledAt, o.ReturnedAt, o.RefundedAt,
		o.CancellationReason, o.ReturnReason, o.RefundAmount,
		o.Version,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrVersionConflict
	}

	o.Version++
	return nil
}

// marshalNullable maps a nil pointer to a SQL NULL instead of the JSON string
// "null".
func marshalNullable[T any](p *T) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o order.Order

		customerJSON []byte
		itemsJSON    []byte
		couponJSON   []byte
		shippingJSON []byte
		billingJSON  []byte
		paymentJSON  []byte
		historyJSON  []byte
		courierJSON  []byte

		shippingMethod string
		paymentStatus  string
		status         string
	)

	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &customerJSON, &itemsJSON,
		&o.Subtotal, &o.DiscountAmount, &o.CouponCode, &o.CouponDiscount, &couponJSON,
		&o.ShippingCost, &o.TaxAmount, &o.Total,
		&shippingJSON, &billingJSON, &shippingMethod,
		&o.PaymentMethod, &paymentStatus, &paymentJSON,
		&status, &historyJSON, &courierJSON,
		&o.ConfirmedAt, &o.ProcessedAt, &o.ShippedAt, &o.DeliveredAt,
		&o.CancelledAt, &o.ReturnedAt, &o.RefundedAt,
		&o.CancellationReason, &o.ReturnReason, &o.RefundAmount,
		&o.Version, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}

	o.ShippingMethod = cart.Method(shippingMethod)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)

	if err := json.Unmarshal(customerJSON, &o.CustomerInfo); err != nil {
		return o, fmt.Errorf("unmarshaling customer info: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	if err := json.Unmarshal(billingJSON, &o.BillingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling billing address: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &o.History); err != nil {
		return o, fmt.Errorf("unmarshaling status history: %w", err)
	}
	if len(couponJSON) > 0 {
		if err := json.Unmarshal(couponJSON, &o.AppliedCoupon); err != nil {
			return o, fmt.Errorf("unmarshaling applied coupon: %w", err)
		}
	}
	if len(paymentJSON) > 0 {
		if err := json.Unmarshal(paymentJSON, &o.Payment); err != nil {
			return o, fmt.Errorf("unmarshaling payment info: %w", err)
		}
	}
	if len(courierJSON) > 0 {
		if err := json.Unmarshal(courierJSON, &o.Courier); err != nil {
			return o, fmt.Errorf("unmarshaling courier: %w", err)
		}
	}

	return o, nil
}
