// Package mongocart persists cart documents in MongoDB. A cart is mutated
// whole (load, apply domain methods, save), so the document mirrors the
// aggregate one-to-one; the only write-side cleverness is the version filter
// that turns lost races into cart.ErrVersionConflict.
package mongocart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deshikart/deshikart/internal/domain/cart"
	"github.com/deshikart/deshikart/internal/domain/coupon"
)

// Connect opens a MongoDB database handle and verifies connectivity.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return client.Database(database), nil
}

var _ cart.Store = (*Store)(nil)

// Store implements cart.Store on a MongoDB collection.
type Store struct {
	collection *mongo.Collection
}

// NewStore returns a Store using the "carts" collection.
func NewStore(db *mongo.Database) *Store {
	return &Store{collection: db.Collection("carts")}
}

// EnsureIndexes creates the uniqueness and lookup indexes. The partial unique
// index enforces one active cart per user at the storage level.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
		},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("creating cart indexes: %w", err)
	}
	return nil
}

// ActiveByUser returns the user's active cart.
func (s *Store) ActiveByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	var doc cartDoc
	err := s.collection.FindOne(ctx, bson.M{"user_id": userID, "active": true}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("finding cart for user %q: %w", userID, err)
	}
	return doc.toDomain()
}

// Save upserts the cart. Version 0 inserts; any other version replaces the
// document conditionally on the stored version matching.
func (s *Store) Save(ctx context.Context, c *cart.Cart) error {
	if c.Version == 0 {
		if _, err := s.collection.InsertOne(ctx, docFrom(c, 1)); err != nil {
			return fmt.Errorf("inserting cart %q: %w", c.ID, err)
		}
		c.Version = 1
		return nil
	}

	res, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": c.ID, "version": c.Version},
		docFrom(c, c.Version+1),
	)
	if err != nil {
		return fmt.Errorf("replacing cart %q: %w", c.ID, err)
	}
	if res.MatchedCount == 0 {
		return cart.ErrVersionConflict
	}
	c.Version++
	return nil
}

// Deactivate flips the active flag on every cart expiring before the cutoff.
func (s *Store) Deactivate(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.collection.UpdateMany(ctx,
		bson.M{"active": true, "expires_at": bson.M{"$lt": cutoff}},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return 0, fmt.Errorf("deactivating expired carts: %w", err)
	}
	return res.ModifiedCount, nil
}

// Money travels as strings inside the document; BSON has no exact decimal
// type that round-trips through shopspring/decimal unaided.
type cartDoc struct {
	ID             string       `bson:"_id"`
	UserID         string       `bson:"user_id"`
	Lines          []lineDoc    `bson:"items"`
	Subtotal       string       `bson:"subtotal"`
	DiscountAmount string       `bson:"discount_amount"`
	CouponCode     string       `bson:"coupon_code,omitempty"`
	CouponDiscount string       `bson:"coupon_discount"`
	ShippingCost   string       `bson:"shipping_cost"`
	TaxAmount      string       `bson:"tax_amount"`
	Total          string       `bson:"total"`
	AppliedCoupon  *snapshotDoc `bson:"applied_coupon,omitempty"`
	ShippingTo     *addressDoc  `bson:"shipping_address,omitempty"`
	ShippingMethod string       `bson:"shipping_method"`
	Active         bool         `bson:"active"`
	ExpiresAt      time.Time    `bson:"expires_at"`
	Version        int64        `bson:"version"`
	CreatedAt      time.Time    `bson:"created_at"`
	UpdatedAt      time.Time    `bson:"updated_at"`
}

type lineDoc struct {
	ID               string `bson:"id"`
	ProductID        string `bson:"product_id"`
	Name             string `bson:"name"`
	SKU              string `bson:"sku"`
	Quantity         int    `bson:"quantity"`
	UnitPrice        string `bson:"unit_price"`
	OriginalPrice    string `bson:"original_price"`
	DiscountPercent  string `bson:"discount_percent"`
	DiscountAmount   string `bson:"discount_amount"`
	FinalUnitPrice   string `bson:"final_unit_price"`
	Size             string `bson:"size,omitempty"`
	Color            string `bson:"color,omitempty"`
	Image            string `bson:"image,omitempty"`
	LineTotal        string `bson:"line_total"`
	Available        bool   `bson:"available"`
	AvailabilityNote string `bson:"availability_note,omitempty"`
}

type snapshotDoc struct {
	Code            string     `bson:"code"`
	Type            string     `bson:"type"`
	Value           string     `bson:"value"`
	MinimumAmount   string     `bson:"minimum_amount"`
	MaximumDiscount string     `bson:"maximum_discount"`
	ValidUntil      *time.Time `bson:"valid_until,omitempty"`
}

type addressDoc struct {
	Label      string `bson:"label,omitempty"`
	Name       string `bson:"name"`
	Phone      string `bson:"phone"`
	Line1      string `bson:"line1"`
	Line2      string `bson:"line2,omitempty"`
	City       string `bson:"city"`
	District   string `bson:"district"`
	PostalCode string `bson:"postal_code"`
	Country    string `bson:"country"`
}

func docFrom(c *cart.Cart, version int64) cartDoc {
	lines := make([]lineDoc, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = lineDoc{
			ID:               l.ID,
			ProductID:        l.ProductID,
			Name:             l.Name,
			SKU:              l.SKU,
			Quantity:         l.Quantity,
			UnitPrice:        l.UnitPrice.String(),
			OriginalPrice:    l.OriginalPrice.String(),
			DiscountPercent:  l.DiscountPercent.String(),
			DiscountAmount:   l.DiscountAmount.String(),
			FinalUnitPrice:   l.FinalUnitPrice.String(),
			Size:             l.Size,
			Color:            l.Color,
			Image:            l.Image,
			LineTotal:        l.LineTotal.String(),
			Available:        l.Available,
			AvailabilityNote: l.AvailabilityNote,
		}
	}

	doc := cartDoc{
		ID:             c.ID,
		UserID:         c.UserID,
		Lines:          lines,
		Subtotal:       c.Subtotal.String(),
		DiscountAmount: c.DiscountAmount.String(),
		CouponCode:     c.CouponCode,
		CouponDiscount: c.CouponDiscount.String(),
		ShippingCost:   c.ShippingCost.String(),
		TaxAmount:      c.TaxAmount.String(),
		Total:          c.Total.String(),
		ShippingMethod: string(c.ShippingMethod),
		Active:         c.Active,
		ExpiresAt:      c.ExpiresAt,
		Version:        version,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}

	if c.AppliedCoupon != nil {
		doc.AppliedCoupon = &snapshotDoc{
			Code:            c.AppliedCoupon.Code,
			Type:            string(c.AppliedCoupon.Type),
			Value:           c.AppliedCoupon.Value.String(),
			MinimumAmount:   c.AppliedCoupon.MinimumAmount.String(),
			MaximumDiscount: c.AppliedCoupon.MaximumDiscount.String(),
			ValidUntil:      c.AppliedCoupon.ValidUntil,
		}
	}
	if c.ShippingTo != nil {
		doc.ShippingTo = &addressDoc{
			Label:      c.ShippingTo.Label,
			Name:       c.ShippingTo.Name,
			Phone:      c.ShippingTo.Phone,
			Line1:      c.ShippingTo.Line1,
			Line2:      c.ShippingTo.Line2,
			City:       c.ShippingTo.City,
			District:   c.ShippingTo.District,
			PostalCode: c.ShippingTo.PostalCode,
			Country:    c.ShippingTo.Country,
		}
	}
	return doc
}

func (d cartDoc) toDomain() (*cart.Cart, error) {
	c := &cart.Cart{
		ID:             d.ID,
		UserID:         d.UserID,
		CouponCode:     d.CouponCode,
		ShippingMethod: cart.Method(d.ShippingMethod),
		Active:         d.Active,
		ExpiresAt:      d.ExpiresAt,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}

	var err error
	if c.Subtotal, err = parseMoney(d.Subtotal); err != nil {
		return nil, err
	}
	if c.DiscountAmount, err = parseMoney(d.DiscountAmount); err != nil {
		return nil, err
	}
	if c.CouponDiscount, err = parseMoney(d.CouponDiscount); err != nil {
		return nil, err
	}
	if c.ShippingCost, err = parseMoney(d.ShippingCost); err != nil {
		return nil, err
	}
	if c.TaxAmount, err = parseMoney(d.TaxAmount); err != nil {
		return nil, err
	}
	if c.Total, err = parseMoney(d.Total); err != nil {
		return nil, err
	}

	c.Lines = make([]cart.Line, len(d.Lines))
	for i, ld := range d.Lines {
		l := cart.Line{
			ID:               ld.ID,
			ProductID:        ld.ProductID,
			Name:             ld.Name,
			SKU:              ld.SKU,
			Quantity:         ld.Quantity,
			Size:             ld.Size,
			Color:            ld.Color,
			Image:            ld.Image,
			Available:        ld.Available,
			AvailabilityNote: ld.AvailabilityNote,
		}
		if l.UnitPrice, err = parseMoney(ld.UnitPrice); err != nil {
			return nil, err
		}
		if l.OriginalPrice, err = parseMoney(ld.OriginalPrice); err != nil {
			return nil, err
		}
		if l.DiscountPercent, err = parseMoney(ld.DiscountPercent); err != nil {
			return nil, err
		}
		if l.DiscountAmount, err = parseMoney(ld.DiscountAmount); err != nil {
			return nil, err
		}
		if l.FinalUnitPrice, err = parseMoney(ld.FinalUnitPrice); err != nil {
			return nil, err
		}
		if l.LineTotal, err = parseMoney(ld.LineTotal); err != nil {
			return nil, err
		}
		c.Lines[i] = l
	}

	if d.AppliedCoupon != nil {
		snap := &coupon.Snapshot{
			Code:       d.AppliedCoupon.Code,
			Type:       coupon.Type(d.AppliedCoupon.Type),
			ValidUntil: d.AppliedCoupon.ValidUntil,
		}
		if snap.Value, err = parseMoney(d.AppliedCoupon.Value); err != nil {
			return nil, err
		}
		if snap.MinimumAmount, err = parseMoney(d.AppliedCoupon.MinimumAmount); err != nil {
			return nil, err
		}
		if snap.MaximumDiscount, err = parseMoney(d.AppliedCoupon.MaximumDiscount); err != nil {
			return nil, err
		}
		c.AppliedCoupon = snap
	}
	if d.ShippingTo != nil {
		c.ShippingTo = &cart.Address{
			Label:      d.ShippingTo.Label,
			Name:       d.ShippingTo.Name,
			Phone:      d.ShippingTo.Phone,
			Line1:      d.ShippingTo.Line1,
			Line2:      d.ShippingTo.Line2,
			City:       d.ShippingTo.City,
			District:   d.ShippingTo.District,
			PostalCode: d.ShippingTo.PostalCode,
			Country:    d.ShippingTo.Country,
		}
	}
	return c, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing stored amount %q: %w", s, err)
	}
	return v, nil
}
