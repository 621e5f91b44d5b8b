package notification

import (
	"context"

	"go.uber.org/zap"
)

// NewLogSender only logs messages. Used when no broker is configured.
func NewLogSender(logger *zap.Logger, adminEmail string) *Sender {
	return &Sender{
		adminEmail: adminEmail,
		publish: func(_ context.Context, m *Message, body []byte) error {
			logger.Info("Notification",
				zap.String("kind", string(m.Kind)),
				zap.String("to", m.To),
				zap.String("subject", m.Subject),
				zap.ByteString("body", body))
			return nil
		},
	}
}
