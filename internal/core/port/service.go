package port

import (
	"context"

	"github.com/MikeRez0/storefront/internal/core/domain"
)

//go:generate mockgen -source=service.go -destination=mock/service.go -package=mock

type GuestCheckout struct {
	Contact    domain.GuestContact
	Address    domain.Address
	Items      []domain.LineItem
	CouponCode string
	Notes      string
}

type UserCheckout struct {
	UserID          string
	AddressID       string
	Items           []domain.LineItem
	PaymentProvider domain.PaymentProvider
	CouponCode      string
	Notes           string
}

type CheckoutResult struct {
	OrderID     string
	OrderNumber domain.OrderNumber
	Order       *domain.Order
}

type CheckoutService interface {
	CheckoutAsGuest(ctx context.Context, req *GuestCheckout) (*CheckoutResult, error)
	CheckoutAsUser(ctx context.Context, req *UserCheckout) (*CheckoutResult, error)
}

type PaymentUpdate struct {
	Status        domain.PaymentStatus
	TransactionID string
	IntentID      string
}

// OrderQueryService reads and administers placed orders. An empty
// requestingUserID means an admin context and skips the ownership check.
type OrderQueryService interface {
	GetByID(ctx context.Context, orderID, requestingUserID string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number domain.OrderNumber, requestingUserID string) (*domain.Order, error)
	ListForUser(ctx context.Context, userID string, page, limit int) (*domain.OrderPage, error)
	ListForGuest(ctx context.Context, email, phone string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) (*domain.Order, error)
	UpdatePayment(ctx context.Context, orderID string, update PaymentUpdate) (*domain.Order, error)
}
