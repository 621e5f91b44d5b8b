package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/govalues/decimal"
)

// GetCouponByCode matches the code case-insensitively. Inactive coupons are
// returned too; redeemability is decided by the domain.
func (or *Repository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	sql, args, err := or.db.QueryBuilder.
		Select("id", "code", "discount_type", "value", "min_subtotal", "max_discount",
			"valid_from", "valid_until", "usage_limit", "used_count", "is_active").
		From("coupons").
		Where(sq.Expr("UPPER(code) = ?", domain.NormalizeCouponCode(code))).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		c                        domain.Coupon
		kind                     string
		value                    decimal.Decimal
		minSubtotal, maxDiscount *decimal.Decimal
		validFrom, validUntil    time.Time
		usageLimit               *int
	)
	err = or.db.QueryRow(ctx, sql, args...).Scan(
		&c.ID, &c.Code, &kind, &value, &minSubtotal, &maxDiscount,
		&validFrom, &validUntil, &usageLimit, &c.UsedCount, &c.IsActive,
	)
	if err != nil {
		return nil, translateError(err)
	}

	c.Kind = domain.DiscountKind(kind)
	c.Value = value
	c.MinSubtotal = minSubtotal
	c.MaxDiscount = maxDiscount
	c.ValidFrom = validFrom
	c.ValidUntil = validUntil
	c.UsageLimit = usageLimit

	return &c, nil
}
