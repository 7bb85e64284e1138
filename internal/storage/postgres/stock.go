package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deshikart/deshikart/internal/domain/stock"
)

const (
	getAvailableSQL = `SELECT quantity FROM stock
		WHERE product_id = $1 AND size = $2 AND color = $3`

	// The WHERE quantity >= $2 guard makes the decrement atomic: of two
	// concurrent checkouts racing for the last units, exactly one matches.
	reserveStockSQL = `UPDATE stock SET quantity = quantity - $2, updated_at = now()
		WHERE product_id = $1 AND size = '' AND color = '' AND quantity >= $2`

	releaseStockSQL = `UPDATE stock SET quantity = quantity + $2, updated_at = now()
		WHERE product_id = $1 AND size = '' AND color = ''`
)

var _ stock.Ledger = (*StockLedger)(nil)

// StockLedger implements stock.Ledger backed by PostgreSQL.
type StockLedger struct {
	pool *pgxpool.Pool
}

// NewStockLedger returns a StockLedger that uses the given pool.
func NewStockLedger(pool *pgxpool.Pool) *StockLedger {
	return &StockLedger{pool: pool}
}

// Available returns the quantity on hand for a product/variant.
func (l *StockLedger) Available(ctx context.Context, productID, size, color string) (int, error) {
	var qty int
	err := l.pool.QueryRow(ctx, getAvailableSQL, productID, size, color).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, stock.ErrNotFound
		}
		return 0, fmt.Errorf("reading stock for %q: %w", productID, err)
	}
	return qty, nil
}

// Reserve decrements the base record by qty in a single conditional update.
// Zero rows affected means another transaction won the race or there was never
// enough; the error reports the quantity observed afterwards.
func (l *StockLedger) Reserve(ctx context.Context, productID string, qty int) error {
	tag, err := l.pool.Exec(ctx, reserveStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("reserving %d of %q: %w", qty, productID, err)
	}
	if tag.RowsAffected() == 0 {
		avail, availErr := l.Available(ctx, productID, "", "")
		if availErr != nil {
			avail = 0
		}
		return &stock.InsufficientError{ProductID: productID, Requested: qty, Available: avail}
	}
	return nil
}

// Release adds qty units back to the base record.
func (l *StockLedger) Release(ctx context.Context, productID string, qty int) error {
	_, err := l.pool.Exec(ctx, releaseStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("releasing %d of %q: %w", qty, productID, err)
	}
	return nil
}

// ReleaseLines releases every line inside one transaction.
func (l *StockLedger) ReleaseLines(ctx context.Context, lines []stock.Line) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning release transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, line := range lines {
		if _, err := tx.Exec(ctx, releaseStockSQL, line.ProductID, line.Quantity); err != nil {
			return fmt.Errorf("releasing %d of %q: %w", line.Quantity, line.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing release transaction: %w", err)
	}
	return nil
}
