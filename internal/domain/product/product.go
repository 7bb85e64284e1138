// Package product holds the catalog view this module depends on. Catalog
// management itself is an external collaborator; cart lines and order items
// denormalize these fields so later product edits never alter history.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product does not exist or is inactive.
var ErrNotFound = errors.New("product not found")

// Product is the catalog record backing a cart line.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Price           decimal.Decimal `json:"price"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Image           string          `json:"image"`
	Active          bool            `json:"active"`
}

// Repository defines read access to the catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
