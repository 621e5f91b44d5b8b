package notification

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaSender writes to topic keyed by order number, so messages of one
// order keep their order within a partition.
func NewKafkaSender(brokers []string, topic, adminEmail string) (*Sender, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	s := newKafkaSender(writer, adminEmail)
	s.close = writer.Close
	return s, nil
}

func newKafkaSender(writer kafkaWriter, adminEmail string) *Sender {
	return &Sender{
		adminEmail: adminEmail,
		publish: func(ctx context.Context, m *Message, body []byte) error {
			err := writer.WriteMessages(ctx, kafka.Message{
				Key:   []byte(m.OrderNumber),
				Value: body,
				Headers: []kafka.Header{
					{Key: "kind", Value: []byte(m.Kind)},
				},
			})
			if err != nil {
				return fmt.Errorf("failed to write message: %w", err)
			}
			return nil
		},
	}
}
