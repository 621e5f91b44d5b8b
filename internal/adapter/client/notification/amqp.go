package notification

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
)

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NewAMQPSender publishes to a durable topic exchange, routed by message kind.
func NewAMQPSender(amqpURL, exchange, adminEmail string) (*Sender, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	s := newAMQPSender(channel, exchange, adminEmail)
	s.close = func() error {
		channel.Close()
		return conn.Close()
	}
	return s, nil
}

func newAMQPSender(channel amqpChannel, exchange, adminEmail string) *Sender {
	return &Sender{
		adminEmail: adminEmail,
		publish: func(_ context.Context, m *Message, body []byte) error {
			err := channel.Publish(exchange, string(m.Kind), false, false, amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    m.OrderID + ":" + string(m.Kind),
				Body:         body,
			})
			if err != nil {
				return fmt.Errorf("failed to publish message: %w", err)
			}
			return nil
		},
	}
}
