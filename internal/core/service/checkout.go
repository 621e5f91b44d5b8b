package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
)

const defaultOrderNumberAttempts = 5

type CheckoutService struct {
	pricing  *PricingEngine
	coupons  *CouponValidator
	repo     port.Repository
	notifier port.NotificationDispatcher
	logger   *zap.Logger

	attempts  int
	now       Clock
	newNumber OrderNumberGenerator
}

func NewCheckoutService(
	pricing *PricingEngine,
	coupons *CouponValidator,
	repo port.Repository,
	notifier port.NotificationDispatcher,
	orderNumberAttempts int,
	logger *zap.Logger,
	opts ...Option,
) (*CheckoutService, error) {
	if pricing == nil || coupons == nil || repo == nil {
		return nil, errors.New("checkout requires pricing, coupons and repository")
	}
	if orderNumberAttempts < 1 {
		orderNumberAttempts = defaultOrderNumberAttempts
	}
	s := applyOptions(opts)

	return &CheckoutService{
		pricing:   pricing,
		coupons:   coupons,
		repo:      repo,
		notifier:  notifier,
		logger:    logger,
		attempts:  orderNumberAttempts,
		now:       s.now,
		newNumber: s.newNumber,
	}, nil
}

type checkoutInput struct {
	customer   domain.Customer
	address    domain.Address
	items      []domain.LineItem
	payment    domain.Payment
	couponCode string
	notes      string
}

// CheckoutAsGuest places a cash-on-delivery order for a guest contact.
func (s *CheckoutService) CheckoutAsGuest(ctx context.Context, req *port.GuestCheckout) (*port.CheckoutResult, error) {
	if req == nil {
		return nil, domain.ErrBadRequest
	}

	customer := domain.GuestCustomer(req.Contact)
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	address := req.Address
	if err := address.Validate(); err != nil {
		return nil, err
	}

	return s.checkout(ctx, checkoutInput{
		customer:   customer,
		address:    address,
		items:      req.Items,
		payment:    domain.Payment{Provider: domain.PaymentProviderCOD, Status: domain.PaymentStatusPending},
		couponCode: req.CouponCode,
		notes:      req.Notes,
	})
}

// CheckoutAsUser places an order for a registered user, shipping to one of the
// user's saved addresses.
func (s *CheckoutService) CheckoutAsUser(ctx context.Context, req *port.UserCheckout) (*port.CheckoutResult, error) {
	if req == nil {
		return nil, domain.ErrBadRequest
	}

	customer := domain.RegisteredCustomer(req.UserID)
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	if !req.PaymentProvider.IsValid() {
		return nil, domain.NewValidationError("paymentProvider", "must be one of stripe, sslcommerz, cod")
	}
	if req.AddressID == "" {
		return nil, domain.NewValidationError("addressId", "is required")
	}

	address, err := s.repo.GetUserAddress(ctx, req.UserID, req.AddressID)
	if err != nil {
		if errors.Is(err, domain.ErrDataNotFound) {
			return nil, domain.NewValidationError("addressId", "does not match a saved address")
		}
		s.logger.Error("Get user address", zap.String("user", req.UserID), zap.Error(err))
		return nil, domain.ErrInternal
	}

	return s.checkout(ctx, checkoutInput{
		customer:   customer,
		address:    *address,
		items:      req.Items,
		payment:    domain.Payment{Provider: req.PaymentProvider, Status: domain.PaymentStatusPending},
		couponCode: req.CouponCode,
		notes:      req.Notes,
	})
}

func (s *CheckoutService) checkout(ctx context.Context, in checkoutInput) (*port.CheckoutResult, error) {
	priced, err := s.pricing.PriceLineItems(ctx, in.items)
	if err != nil {
		return nil, err
	}

	discount := decimal.Zero
	var applied *domain.AppliedCoupon
	if domain.NormalizeCouponCode(in.couponCode) != "" {
		d, err := s.coupons.ApplyCoupon(ctx, in.couponCode, priced.Subtotal)
		if err != nil {
			return nil, err
		}
		discount = d.Amount
		applied = &domain.AppliedCoupon{CouponID: d.Coupon.ID, Code: d.Coupon.Code}
	}

	totals, err := s.pricing.Totals(priced.Subtotal, discount)
	if err != nil {
		s.logger.Error("Compute totals", zap.Error(err))
		return nil, domain.ErrInternal
	}

	now := s.now()
	number, err := s.newNumber(now)
	if err != nil {
		s.logger.Error("Generate order number", zap.Error(err))
		return nil, domain.ErrInternal
	}

	order, err := domain.NewOrder(domain.OrderDraft{
		Number:   number,
		Customer: in.customer,
		Items:    priced.Items,
		Totals:   totals,
		Currency: s.pricing.Currency(),
		Address:  in.address,
		Payment:  in.payment,
		Coupon:   applied,
		Notes:    in.notes,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, order); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Dispatch(order)
	}

	return &port.CheckoutResult{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Order:       order,
	}, nil
}

// persist stores the order, regenerating its number on a uniqueness conflict.
func (s *CheckoutService) persist(ctx context.Context, order *domain.Order) error {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err := s.repo.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrOrderNumberTaken) {
			if isBusinessError(err) {
				return err
			}
			s.logger.Error("Create order", zap.String("number", string(order.Number)), zap.Error(err))
			return domain.ErrInternal
		}

		s.logger.Warn("Order number collision",
			zap.String("number", string(order.Number)),
			zap.Int("attempt", attempt))

		number, err := s.newNumber(s.now())
		if err != nil {
			s.logger.Error("Generate order number", zap.Error(err))
			return domain.ErrInternal
		}
		if err := order.Renumber(number); err != nil {
			return fmt.Errorf("renumber order: %w", err)
		}
	}

	s.logger.Error("Order number attempts exhausted", zap.Int("attempts", s.attempts))
	return domain.ErrConflictingData
}
