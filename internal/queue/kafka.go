package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher exports events to an external bus.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}

// OrderEvent is the payload exported for order status changes.
type OrderEvent struct {
	OrderID    string    `json:"order_id"`
	Status     string    `json:"status"`
	NotifiedID string    `json:"notified_user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// KafkaPublisher writes events to a single Kafka topic, keyed so one order's
// events land on one partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

func (p *KafkaPublisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

// ForwardOrderEvents wraps next so that ORDER_STATUS notification jobs are also
// published. Publish errors are reported after next has run.
func ForwardOrderEvents(pub Publisher, kind string, next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, job Job) error {
		if err := next(ctx, job); err != nil {
			return err
		}
		if job.Kind != kind || job.OrderID == "" {
			return nil
		}

		occurred := job.CreatedAt
		if occurred.IsZero() {
			occurred = time.Now().UTC()
		}
		b, err := json.Marshal(OrderEvent{
			OrderID:    job.OrderID,
			Status:     job.Status,
			NotifiedID: job.UserID,
			OccurredAt: occurred,
		})
		if err != nil {
			return err
		}

		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pub.Publish(pubCtx, job.OrderID, b)
	}
}
