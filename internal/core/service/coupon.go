package service

import (
	"context"
	"errors"

	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
)

type CouponValidator struct {
	repo   port.Repository
	logger *zap.Logger
	now    Clock
}

type AppliedDiscount struct {
	Coupon *domain.Coupon
	Amount decimal.Decimal
}

func NewCouponValidator(repo port.Repository, logger *zap.Logger, opts ...Option) (*CouponValidator, error) {
	s := applyOptions(opts)
	return &CouponValidator{
		repo:   repo,
		logger: logger,
		now:    s.now,
	}, nil
}

// ApplyCoupon validates code for subtotal and computes the discount. It never
// touches the usage counter; that happens when the order is committed.
func (v *CouponValidator) ApplyCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*AppliedDiscount, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return nil, domain.ErrCouponNotFound
	}

	coupon, err := v.repo.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrDataNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		v.logger.Error("Get coupon", zap.String("code", code), zap.Error(err))
		return nil, domain.ErrInternal
	}

	if err := coupon.CheckRedeemable(v.now()); err != nil {
		return nil, err
	}

	amount, err := coupon.Discount(subtotal)
	if err != nil {
		return nil, err
	}

	return &AppliedDiscount{Coupon: coupon, Amount: amount}, nil
}
