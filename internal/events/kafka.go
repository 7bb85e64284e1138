package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to Kafka, routing each event to its own topic.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers. Topics are set
// per message, so one writer serves all event types.
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish marshals the event to JSON and writes it keyed by the event key,
// so all events for one order land on the same partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Topic: e.Topic(),
		Key:   []byte(e.Key()),
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		return errors.Wrapf(err, "publish to %s", e.Topic())
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
