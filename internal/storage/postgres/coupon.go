package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deshikart/deshikart/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_type, value, minimum_amount, maximum_discount,
		valid_from, valid_until, usage_limit, used_count, active, description
		FROM coupons WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	incrementCouponUsesSQL = `UPDATE coupons SET used_count = used_count + 1 WHERE code = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its code (case-insensitive).
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// IncrementUses atomically increments the usage counter for the given code.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, incrementCouponUsesSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing uses for coupon %q: %w", code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		usageLimit   int32
		usedCount    int32
	)
	err := row.Scan(
		&c.Code, &discountType, &c.Value, &c.MinimumAmount, &c.MaximumDiscount,
		&c.ValidFrom, &c.ValidUntil, &usageLimit, &usedCount, &c.Active, &c.Description,
	)
	c.Type = coupon.Type(discountType)
	c.UsageLimit = int(usageLimit)
	c.UsedCount = int(usedCount)
	return c, err
}
