package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshikart/deshikart/internal/checkout"
	"github.com/deshikart/deshikart/internal/domain/auth"
	"github.com/deshikart/deshikart/internal/domain/cart"
	"github.com/deshikart/deshikart/internal/domain/coupon"
	"github.com/deshikart/deshikart/internal/domain/order"
	"github.com/deshikart/deshikart/internal/domain/payment"
	"github.com/deshikart/deshikart/internal/domain/product"
	"github.com/deshikart/deshikart/internal/domain/stock"
	"github.com/deshikart/deshikart/internal/events"
)

var testPepper = []byte("test-pepper")

const (
	customerKey = "customer-api-key"
	adminKey    = "admin-api-key"
)

type memCartStore struct {
	carts map[string]*cart.Cart
}

func (s *memCartStore) ActiveByUser(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := s.carts[userID]
	if !ok || !c.Active {
		return nil, cart.ErrNotFound
	}
	cp := *c
	cp.Lines = append([]cart.Line(nil), c.Lines...)
	return &cp, nil
}

func (s *memCartStore) Save(_ context.Context, c *cart.Cart) error {
	c.Version++
	cp := *c
	s.carts[c.UserID] = &cp
	return nil
}

func (s *memCartStore) Deactivate(context.Context, time.Time) (int64, error) { return 0, nil }

type memProducts struct {
	products map[string]product.Product
}

func (f *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.products[id]
	if !ok || !p.Active {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *memProducts) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, err := f.GetByID(ctx, id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memLedger struct {
	quantities map[string]int
}

func (f *memLedger) Available(_ context.Context, productID, _, _ string) (int, error) {
	q, ok := f.quantities[productID]
	if !ok {
		return 0, stock.ErrNotFound
	}
	return q, nil
}

func (f *memLedger) Reserve(_ context.Context, productID string, qty int) error {
	if f.quantities[productID] < qty {
		return &stock.InsufficientError{ProductID: productID, Requested: qty, Available: f.quantities[productID]}
	}
	f.quantities[productID] -= qty
	return nil
}

func (f *memLedger) Release(_ context.Context, productID string, qty int) error {
	f.quantities[productID] += qty
	return nil
}

func (f *memLedger) ReleaseLines(ctx context.Context, lines []stock.Line) error {
	for _, l := range lines {
		_ = f.Release(ctx, l.ProductID, l.Quantity)
	}
	return nil
}

type memCoupons struct {
	coupons map[string]*coupon.Coupon
}

func (f *memCoupons) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok || !c.Active {
		return nil, coupon.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *memCoupons) IncrementUses(context.Context, string) error { return nil }

type memOrders struct {
	orders map[string]*order.Order
}

func (r *memOrders) Create(_ context.Context, o *order.Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *memOrders) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrders) ListByUser(_ context.Context, userID string, limit, offset int) ([]order.Order, error) {
	var out []order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memOrders) Update(_ context.Context, o *order.Order) error {
	r.orders[o.ID] = o
	return nil
}

type memKeys struct {
	keys map[string]*auth.Key // by hash
}

func (r *memKeys) FindByHash(_ context.Context, hash string) (*auth.Key, error) {
	k, ok := r.keys[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return k, nil
}

type fixture struct {
	router http.Handler
	ledger *memLedger
	orders *memOrders
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := &memCartStore{carts: map[string]*cart.Cart{}}
	products := &memProducts{products: map[string]product.Product{
		"p1": {ID: "p1", Name: "Panjabi", SKU: "PNJ-1", Price: d("600"), OriginalPrice: d("600"), Active: true},
		"p2": {ID: "p2", Name: "Saree", SKU: "SRE-1", Price: d("2000"), OriginalPrice: d("2500"),
			DiscountPercent: d("20"), Active: true},
	}}
	ledger := &memLedger{quantities: map[string]int{"p1": 10, "p2": 5}}
	coupons := &memCoupons{coupons: map[string]*coupon.Coupon{
		"SAVE10": {Code: "SAVE10", Type: coupon.TypePercentage, Value: d("10"), Active: true},
	}}
	orders := &memOrders{orders: map[string]*order.Order{}}

	customerHash := auth.HashKey(customerKey, testPepper)
	adminHash := auth.HashKey(adminKey, testPepper)
	keys := &memKeys{keys: map[string]*auth.Key{
		customerHash: {ID: "k1", UserID: "user-1", Role: auth.RoleCustomer, KeyHash: customerHash},
		adminHash:    {ID: "k2", UserID: "42", Role: auth.RoleAdmin, KeyHash: adminHash},
	}}

	carts := cart.NewService(store, nil, products, ledger, coupons)
	co := checkout.NewService(carts, orders, ledger, coupons, events.Nop{})
	orderSvc := order.NewService(orders, ledger, events.Nop{}, 0)
	paySvc := payment.NewService(orders, payment.NewRegistry(), events.Nop{})

	h := NewHandler(carts, co, orderSvc, paySvc, NewAuthenticator(keys, testPepper))
	return &fixture{router: h.Routes(), ledger: ledger, orders: orders}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) do(t *testing.T, method, path, apiKey string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func dataMap(t *testing.T, env response) map[string]any {
	t.Helper()
	m, ok := env.Data.(map[string]any)
	require.True(t, ok, "data is %T", env.Data)
	return m
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	rec, _ = f.do(t, http.MethodGet, "/cart", "wrong-key", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodGet, "/cart", customerKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := dataMap(t, env)["summary"].(map[string]any)
	assert.Equal(t, true, summary["isEmpty"])

	rec, env = f.do(t, http.MethodPost, "/cart/add", customerKey,
		map[string]any{"productId": "p2", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	crt := dataMap(t, env)["cart"].(map[string]any)
	items := crt["items"].([]any)
	require.Len(t, items, 1)
	// 20% off 2000 -> 1600 each.
	assert.Equal(t, "3200", crt["subtotal"])

	itemID := items[0].(map[string]any)["id"].(string)
	rec, env = f.do(t, http.MethodPut, "/cart/update/"+itemID, customerKey,
		map[string]any{"quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	crt = dataMap(t, env)["cart"].(map[string]any)
	assert.Equal(t, "1600", crt["subtotal"])

	rec, env = f.do(t, http.MethodPost, "/cart/apply-coupon", customerKey,
		map[string]any{"code": "SAVE10"})
	require.Equal(t, http.StatusOK, rec.Code)
	crt = dataMap(t, env)["cart"].(map[string]any)
	assert.Equal(t, "160", crt["couponDiscount"])

	rec, _ = f.do(t, http.MethodDelete, "/cart/remove/"+itemID, customerKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCartErrors(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/cart/add", customerKey,
		map[string]any{"productId": "missing", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := f.do(t, http.MethodPost, "/cart/add", customerKey,
		map[string]any{"productId": "p1", "quantity": 999})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "insufficient stock")

	rec, _ = f.do(t, http.MethodPost, "/cart/add", customerKey,
		map[string]any{"productId": "p1", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/cart/apply-coupon", customerKey,
		map[string]any{"code": "NOPE"})
	// Applying to an empty cart fails before the lookup.
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/cart/shipping-method", customerKey,
		map[string]any{"method": "drone"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A line ID the cart does not hold is a missing resource, not bad input.
	rec, _ = f.do(t, http.MethodPut, "/cart/update/no-such-line", customerKey,
		map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodDelete, "/cart/remove/no-such-line", customerKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func placeOrder(t *testing.T, f *fixture) string {
	t.Helper()

	rec, env := f.do(t, http.MethodPost, "/cart/add", customerKey,
		map[string]any{"productId": "p1", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	rec, _ = f.do(t, http.MethodPut, "/cart/shipping-address", customerKey, map[string]any{
		"name": "Rahim", "phone": "01712345678", "line1": "House 7",
		"city": "Dhaka", "district": "Dhaka", "postalCode": "1207", "country": "BD",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Pre-checkout validation reports the cart ready.
	rec, env = f.do(t, http.MethodPost, "/cart/checkout", customerKey, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	rec, env = f.do(t, http.MethodPost, "/orders", customerKey, map[string]any{
		"customer":      map[string]any{"name": "Rahim", "email": "rahim@example.com", "phone": "01712345678"},
		"paymentMethod": "bkash",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	return dataMap(t, env)["id"].(string)
}

func TestCheckoutAndPayment(t *testing.T) {
	f := newFixture(t)
	orderID := placeOrder(t, f)

	assert.Equal(t, 8, f.ledger.quantities["p1"], "stock reserved at checkout")

	// Cart is empty after checkout.
	_, env := f.do(t, http.MethodGet, "/cart", customerKey, nil)
	summary := dataMap(t, env)["summary"].(map[string]any)
	assert.Equal(t, true, summary["isEmpty"])

	// Checkout again with the empty cart fails, as does its pre-validation.
	rec, _ := f.do(t, http.MethodPost, "/cart/checkout", customerKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.do(t, http.MethodPost, "/orders", customerKey,
		map[string]any{
			"customer":      map[string]any{"name": "Rahim", "email": "rahim@example.com", "phone": "01712345678"},
			"paymentMethod": "cod",
		})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Failed payment leaves the order pending.
	rec, env = f.do(t, http.MethodPost, "/payments/process", customerKey,
		map[string]any{"orderId": orderID, "method": "bkash"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "payment failed")

	rec, env = f.do(t, http.MethodPost, "/payments/process", customerKey,
		map[string]any{"orderId": orderID, "method": "bkash", "accountNumber": "01712345678"})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	o := dataMap(t, env)["order"].(map[string]any)
	assert.Equal(t, string(order.StatusConfirmed), o["status"])
	assert.Equal(t, string(order.PaymentCompleted), o["paymentStatus"])

	// Paying twice is rejected.
	rec, _ = f.do(t, http.MethodPost, "/payments/process", customerKey,
		map[string]any{"orderId": orderID, "method": "bkash", "accountNumber": "01712345678"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	f := newFixture(t)
	orderID := placeOrder(t, f)

	rec, env := f.do(t, http.MethodGet, "/orders/"+orderID, customerKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(order.StatusPending), dataMap(t, env)["status"])

	rec, env = f.do(t, http.MethodGet, "/orders", customerKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list, ok := env.Data.([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)

	rec, _ = f.do(t, http.MethodGet, "/orders/"+orderID+"/tracking", customerKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Admin walks the order to shipped.
	for _, status := range []string{"confirmed", "processing"} {
		rec, env = f.do(t, http.MethodPut, "/orders/"+orderID+"/status", adminKey,
			map[string]any{"status": status})
		require.Equal(t, http.StatusOK, rec.Code, env.Message)
	}
	rec, env = f.do(t, http.MethodPut, "/orders/"+orderID+"/status", adminKey, map[string]any{
		"status":  "shipped",
		"courier": map[string]any{"name": "Pathao", "trackingNumber": "PT-1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodGet, "/orders/"+orderID+"/tracking", customerKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	courier := dataMap(t, env)["courier"].(map[string]any)
	assert.Equal(t, "Pathao", courier["name"])

	// Too late to cancel once shipped.
	rec, _ = f.do(t, http.MethodPut, "/orders/"+orderID+"/cancel", customerKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderCancel(t *testing.T) {
	f := newFixture(t)
	orderID := placeOrder(t, f)

	rec, env := f.do(t, http.MethodPut, "/orders/"+orderID+"/cancel", customerKey,
		map[string]any{"reason": "changed my mind"})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	assert.Equal(t, string(order.StatusCancelled), dataMap(t, env)["status"])
	assert.Equal(t, 10, f.ledger.quantities["p1"], "cancellation restocks")
}

func TestOrderOwnershipAndAdmin(t *testing.T) {
	f := newFixture(t)
	orderID := placeOrder(t, f)

	// The admin key belongs to another user: reads 403, status updates pass.
	rec, _ := f.do(t, http.MethodGet, "/orders/"+orderID, adminKey, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/orders/"+orderID+"/status", customerKey,
		map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "customers cannot drive fulfilment")

	rec, _ = f.do(t, http.MethodGet, "/orders/missing", customerKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/payments/process", adminKey,
		map[string]any{"orderId": orderID, "method": "cod"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the owner can pay")
}

func TestReturnEndpoint(t *testing.T) {
	f := newFixture(t)
	orderID := placeOrder(t, f)

	// Force the order to delivered outside the return window.
	o := f.orders.orders[orderID]
	o.Status = order.StatusDelivered
	late := time.Now().Add(-20 * 24 * time.Hour)
	o.DeliveredAt = &late

	rec, env := f.do(t, http.MethodPut, "/orders/"+orderID+"/return", customerKey,
		map[string]any{"reason": "wrong size"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "return window")

	recent := time.Now().Add(-2 * 24 * time.Hour)
	o.DeliveredAt = &recent
	rec, env = f.do(t, http.MethodPut, "/orders/"+orderID+"/return", customerKey,
		map[string]any{"reason": "wrong size"})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	assert.Equal(t, string(order.StatusReturned), dataMap(t, env)["status"])

	// Missing reason is rejected up front.
	rec, _ = f.do(t, http.MethodPut, "/orders/"+orderID+"/return", customerKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
