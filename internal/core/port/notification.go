package port

import (
	"context"

	"github.com/MikeRez0/storefront/internal/core/domain"
)

//go:generate mockgen -source=notification.go -destination=mock/notification.go -package=mock

// NotificationSender delivers a single message about a placed order.
type NotificationSender interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
	SendAdminOrderNotification(ctx context.Context, order *domain.Order) error
}

// NotificationDispatcher schedules notifications for a committed order without blocking.
type NotificationDispatcher interface {
	Dispatch(order *domain.Order)
}
