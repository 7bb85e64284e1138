package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart/internal/domain/coupon"
	"github.com/deshikart/deshikart/internal/domain/pricing"
	"github.com/deshikart/deshikart/internal/domain/product"
	"github.com/deshikart/deshikart/internal/domain/stock"
)

var (
	// ErrCacheMiss is returned by a Cache when no entry exists for the user.
	ErrCacheMiss = errors.New("cart not in cache")
	// ErrEmpty is returned when an operation needs a non-empty cart.
	ErrEmpty = errors.New("cart is empty")
	// ErrUnavailableItems is returned when checkout validation finds lines
	// that are out of stock or short.
	ErrUnavailableItems = errors.New("cart contains unavailable items")
	// ErrNoShippingAddress is returned when checkout validation finds no
	// shipping address on the cart.
	ErrNoShippingAddress = errors.New("shipping address required")
)

// UnavailableItemsError carries the lines that block checkout. It matches
// ErrUnavailableItems under errors.Is so callers can test for the class
// without inspecting the lines.
type UnavailableItemsError struct {
	Lines []Line
}

func (e *UnavailableItemsError) Error() string {
	names := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		names[i] = l.Name
	}
	return "cart contains unavailable items: " + strings.Join(names, ", ")
}

func (e *UnavailableItemsError) Is(target error) bool { return target == ErrUnavailableItems }

// Cache is a read-through cache in front of the Store. Implementations are
// best-effort; the service ignores cache failures.
type Cache interface {
	// Get returns the cached cart, or ErrCacheMiss.
	Get(ctx context.Context, userID string) (*Cart, error)
	// Set stores the cart under the user's key.
	Set(ctx context.Context, c *Cart) error
	// Invalidate drops the user's cached cart.
	Invalidate(ctx context.Context, userID string) error
}

// NopCache is a Cache that caches nothing.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Cart, error) { return nil, ErrCacheMiss }
func (NopCache) Set(context.Context, *Cart) error           { return nil }
func (NopCache) Invalidate(context.Context, string) error   { return nil }

// Service coordinates cart mutations: it loads the aggregate, applies domain
// methods, re-checks stock, and persists through the store and cache.
type Service struct {
	store    Store
	cache    Cache
	products product.Repository
	ledger   stock.Ledger
	coupons  coupon.Repository
	now      func() time.Time
}

// NewService creates a cart service.
func NewService(store Store, cache Cache, products product.Repository, ledger stock.Ledger, coupons coupon.Repository) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		store:    store,
		cache:    cache,
		products: products,
		ledger:   ledger,
		coupons:  coupons,
		now:      time.Now,
	}
}

// Get returns the user's active cart, creating an empty one when none exists
// or the previous one has expired. Availability flags are refreshed on every
// read so the client always sees current stock.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	now := s.now()

	// A cache hit skips the store, never the ledger: availability must be
	// current even when the cart document is served from Redis.
	if c, err := s.cache.Get(ctx, userID); err == nil && !c.Expired(now) {
		s.refreshAvailability(ctx, c, now)
		return c, nil
	}

	c, err := s.store.ActiveByUser(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		c = New(userID, now)
		if err := s.store.Save(ctx, c); err != nil {
			return nil, errors.Wrap(err, "create cart")
		}
	case err != nil:
		return nil, errors.Wrap(err, "load cart")
	case c.Expired(now):
		c.Active = false
		if err := s.store.Save(ctx, c); err != nil {
			return nil, errors.Wrap(err, "expire cart")
		}
		c = New(userID, now)
		if err := s.store.Save(ctx, c); err != nil {
			return nil, errors.Wrap(err, "create cart")
		}
	}

	s.refreshAvailability(ctx, c, now)
	_ = s.cache.Set(ctx, c)
	return c, nil
}

// AddItem adds quantity units of a product variant to the user's cart.
func (s *Service) AddItem(ctx context.Context, userID, productID, size, color string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, errors.New("quantity must be at least 1")
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The stock check covers what the cart would hold after the merge, not
	// just the increment.
	held := 0
	for _, l := range c.Lines {
		if l.ProductID == productID && l.Size == size && l.Color == color {
			held = l.Quantity
		}
	}
	if err := s.checkStock(ctx, productID, size, color, held+quantity); err != nil {
		return nil, err
	}

	c.AddLine(Line{
		ProductID:       p.ID,
		Name:            p.Name,
		SKU:             p.SKU,
		Quantity:        quantity,
		UnitPrice:       p.Price,
		OriginalPrice:   p.OriginalPrice,
		DiscountPercent: p.DiscountPercent,
		DiscountAmount:  decimal.Zero,
		FinalUnitPrice:  pricing.FinalUnitPrice(p.Price, p.DiscountPercent, decimal.Zero),
		Size:            size,
		Color:           color,
		Image:           p.Image,
	}, s.now())

	return c, s.persist(ctx, c)
}

// UpdateQuantity changes a line's quantity; below 1 removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity >= 1 {
		for _, l := range c.Lines {
			if l.ID == lineID {
				if err := s.checkStock(ctx, l.ProductID, l.Size, l.Color, quantity); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	if err := c.UpdateQuantity(lineID, quantity, s.now()); err != nil {
		return nil, err
	}
	return c, s.persist(ctx, c)
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, lineID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveLine(lineID, s.now()); err != nil {
		return nil, err
	}
	return c, s.persist(ctx, c)
}

// ApplyCoupon looks up the code and applies it to the cart. The usage counter
// is not touched here: applying is free and reversible, a use is only counted
// when the cart converts into an order.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.Empty() {
		return nil, ErrEmpty
	}

	cp, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyCoupon(cp, s.now()); err != nil {
		return nil, err
	}
	return c, s.persist(ctx, c)
}

// RemoveCoupon drops the applied coupon.
func (s *Service) RemoveCoupon(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.RemoveCoupon(s.now())
	return c, s.persist(ctx, c)
}

// SetShippingAddress records the destination address on the cart.
func (s *Service) SetShippingAddress(ctx context.Context, userID string, a Address) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.SetShippingAddress(a, s.now())
	return c, s.persist(ctx, c)
}

// SetShippingMethod selects a shipping method and re-derives the cost.
func (s *Service) SetShippingMethod(ctx context.Context, userID string, m Method) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.SetShippingMethod(m, s.now()); err != nil {
		return nil, err
	}
	return c, s.persist(ctx, c)
}

// Validate runs the pre-checkout checks on the user's cart and returns it
// when it is ready to convert: non-empty, fully in stock, with a shipping
// address.
func (s *Service) Validate(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.Empty() {
		return nil, ErrEmpty
	}
	if unavailable := c.UnavailableLines(); len(unavailable) > 0 {
		return nil, &UnavailableItemsError{Lines: unavailable}
	}
	if c.ShippingTo == nil {
		return nil, ErrNoShippingAddress
	}
	return c, nil
}

// Clear empties the cart after a successful checkout. The cached copy is
// dropped rather than overwritten; the next read repopulates it.
func (s *Service) Clear(ctx context.Context, userID string) error {
	c, err := s.store.ActiveByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load cart")
	}
	c.Clear(s.now())
	if err := s.store.Save(ctx, c); err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, userID)
	return nil
}

// refreshAvailability re-checks every line against the ledger and annotates
// shortfalls. Lines are flagged, never silently removed.
func (s *Service) refreshAvailability(ctx context.Context, c *Cart, now time.Time) {
	changed := false
	for i := range c.Lines {
		l := &c.Lines[i]
		avail, err := s.available(ctx, l.ProductID, l.Size, l.Color)
		if err != nil {
			continue
		}

		ok, note := true, ""
		switch {
		case avail <= 0:
			ok, note = false, "out of stock"
		case avail < l.Quantity:
			ok, note = false, fmt.Sprintf("only %d left", avail)
		}
		if l.Available != ok || l.AvailabilityNote != note {
			l.Available, l.AvailabilityNote = ok, note
			changed = true
		}
	}
	if changed {
		c.Recompute(now)
	}
}

func (s *Service) checkStock(ctx context.Context, productID, size, color string, want int) error {
	avail, err := s.available(ctx, productID, size, color)
	if err != nil {
		return err
	}
	if avail < want {
		return &stock.InsufficientError{ProductID: productID, Requested: want, Available: avail}
	}
	return nil
}

// available reads the variant record, falling back to the base record when no
// per-variant entry exists.
func (s *Service) available(ctx context.Context, productID, size, color string) (int, error) {
	avail, err := s.ledger.Available(ctx, productID, size, color)
	if errors.Is(err, stock.ErrNotFound) && (size != "" || color != "") {
		return s.ledger.Available(ctx, productID, "", "")
	}
	return avail, err
}

func (s *Service) persist(ctx context.Context, c *Cart) error {
	if err := s.store.Save(ctx, c); err != nil {
		return err
	}
	_ = s.cache.Set(ctx, c)
	return nil
}
