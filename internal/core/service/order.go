package service

import (
	"context"

	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

type OrderService struct {
	repo   port.Repository
	logger *zap.Logger
	now    Clock
}

func NewOrderService(repo port.Repository, logger *zap.Logger, opts ...Option) (*OrderService, error) {
	s := applyOptions(opts)
	return &OrderService{
		repo:   repo,
		logger: logger,
		now:    s.now,
	}, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID, requestingUserID string) (*domain.Order, error) {
	order, err := s.repo.ReadOrder(ctx, orderID)
	if err != nil {
		return nil, s.readError("Read order", err)
	}
	if err := checkAccess(order, requestingUserID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) GetByNumber(ctx context.Context,
	number domain.OrderNumber, requestingUserID string,
) (*domain.Order, error) {
	if !number.IsValid() {
		return nil, domain.NewValidationError("orderNumber", "has invalid format")
	}

	order, err := s.repo.ReadOrderByNumber(ctx, number)
	if err != nil {
		return nil, s.readError("Read order by number", err)
	}
	if err := checkAccess(order, requestingUserID); err != nil {
		return nil, err
	}
	return order, nil
}

// ListForUser returns the user's orders newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string, page, limit int) (*domain.OrderPage, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user", "is required")
	}
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	orders, total, err := s.repo.ListOrdersByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		s.logger.Error("Get orders for user", zap.Error(err))
		return nil, domain.ErrInternal
	}

	return &domain.OrderPage{
		Orders:     orders,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil
}

// ListForGuest returns guest orders matching either the email or the phone, newest first.
func (s *OrderService) ListForGuest(ctx context.Context, email, phone string) ([]*domain.Order, error) {
	if email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}
	if phone == "" {
		return nil, domain.NewValidationError("phone", "is required")
	}

	orders, err := s.repo.ListGuestOrders(ctx, email, phone)
	if err != nil {
		s.logger.Error("Get guest orders", zap.Error(err))
		return nil, domain.ErrInternal
	}
	return orders, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context,
	orderID string, status domain.OrderStatus, note string,
) (*domain.Order, error) {
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", "is unknown")
	}

	order, err := s.repo.UpdateOrder(ctx, orderID, func(o *domain.Order) error {
		return o.TransitionTo(status, note, s.now())
	})
	if err != nil {
		return nil, s.readError("Update order status", err)
	}
	return order, nil
}

func (s *OrderService) UpdatePayment(ctx context.Context,
	orderID string, update port.PaymentUpdate,
) (*domain.Order, error) {
	order, err := s.repo.UpdateOrder(ctx, orderID, func(o *domain.Order) error {
		return o.ApplyPayment(update.Status, update.TransactionID, update.IntentID, s.now())
	})
	if err != nil {
		return nil, s.readError("Update order payment", err)
	}
	return order, nil
}

func (s *OrderService) readError(msg string, err error) error {
	if isBusinessError(err) {
		return err
	}
	s.logger.Error(msg, zap.Error(err))
	return domain.ErrInternal
}

// checkAccess lets admins (empty requester) read any order and users only their own.
func checkAccess(order *domain.Order, requestingUserID string) error {
	if requestingUserID == "" {
		return nil
	}
	if !order.OwnedBy(requestingUserID) {
		return domain.ErrAccessDenied
	}
	return nil
}

var _ port.OrderQueryService = (*OrderService)(nil)
var _ port.CheckoutService = (*CheckoutService)(nil)
