package port

import (
	"context"

	"github.com/MikeRez0/storefront/internal/core/domain"
)

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock

// CatalogReader is the read-only view of the product catalog.
// GetProduct returns domain.ErrDataNotFound for an unknown id.
type CatalogReader interface {
	GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error)
}

type Repository interface {
	// Order

	// CreateOrder persists the order together with the stock decrement of every
	// item and the coupon usage increment, all or nothing.
	CreateOrder(ctx context.Context, order *domain.Order) error
	ReadOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ReadOrderByNumber(ctx context.Context, number domain.OrderNumber) (*domain.Order, error)
	UpdateOrder(ctx context.Context, orderID string, updateFn UpdateOrderFn) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int, error)
	ListGuestOrders(ctx context.Context, email, phone string) ([]*domain.Order, error)

	// Coupon
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// Address book
	GetUserAddress(ctx context.Context, userID, addressID string) (*domain.Address, error)
}

// UpdateOrderFn mutates a locked order; returning an error aborts the update.
type UpdateOrderFn func(*domain.Order) error
