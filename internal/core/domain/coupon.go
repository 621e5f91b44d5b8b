package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/govalues/decimal"
)

type DiscountKind string

const (
	DiscountFlat    DiscountKind = "flat"
	DiscountPercent DiscountKind = "percent"
)

// Coupon is owned by the promotions domain. Orders only read it and bump UsedCount.
type Coupon struct {
	ID          string
	Code        string
	Kind        DiscountKind
	Value       decimal.Decimal
	MinSubtotal *decimal.Decimal
	MaxDiscount *decimal.Decimal
	ValidFrom   time.Time
	ValidUntil  time.Time
	UsageLimit  *int
	UsedCount   int
	IsActive    bool
}

// NormalizeCouponCode makes code lookups case-insensitive.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckRedeemable reports why a coupon cannot be used at now, if it cannot.
func (c *Coupon) CheckRedeemable(now time.Time) error {
	if !c.IsActive {
		return ErrCouponNotFound
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return ErrCouponExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return ErrCouponExhausted
	}
	return nil
}

// Discount computes the discount for subtotal. The result never exceeds the
// subtotal, and percent discounts are capped by MaxDiscount when set.
func (c *Coupon) Discount(subtotal decimal.Decimal) (decimal.Decimal, error) {
	if c.MinSubtotal != nil && subtotal.Cmp(*c.MinSubtotal) < 0 {
		return decimal.Zero, &MinSubtotalNotMetError{Required: *c.MinSubtotal}
	}
	if c.Value.IsNeg() {
		return decimal.Zero, ErrCouponNotFound
	}

	var discount decimal.Decimal
	switch c.Kind {
	case DiscountFlat:
		discount = c.Value
	case DiscountPercent:
		d, err := subtotal.Mul(c.Value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("math error:%w", err)
		}
		d, err = d.Quo(decimal.Hundred)
		if err != nil {
			return decimal.Zero, fmt.Errorf("math error:%w", err)
		}
		discount = d.Round(2)
		if c.MaxDiscount != nil && discount.Cmp(*c.MaxDiscount) > 0 {
			discount = *c.MaxDiscount
		}
	default:
		return decimal.Zero, ErrCouponNotFound
	}

	if discount.Cmp(subtotal) > 0 {
		discount = subtotal
	}
	return discount, nil
}
