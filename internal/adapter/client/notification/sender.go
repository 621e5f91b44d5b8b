package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
)

type publishFunc func(ctx context.Context, m *Message, body []byte) error

// Sender renders order notifications and hands them to a broker.
type Sender struct {
	adminEmail string
	publish    publishFunc
	close      func() error
}

var _ port.NotificationSender = (*Sender)(nil)

func (s *Sender) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	return s.send(ctx, NewConfirmationMessage(order))
}

func (s *Sender) SendAdminOrderNotification(ctx context.Context, order *domain.Order) error {
	return s.send(ctx, NewAdminMessage(order, s.adminEmail))
}

func (s *Sender) send(ctx context.Context, m *Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return s.publish(ctx, m, body)
}

func (s *Sender) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
