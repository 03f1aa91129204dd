// Package publisher emits sales events to Kafka for the reporting
// pipeline.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/susatyo441/shop-vision/internal/domain"
)

// SaleRecordedEvent is the payload published after a successful
// transaction submission.
type SaleRecordedEvent struct {
	SaleID     string            `json:"sale_id"`
	StoreID    string            `json:"store_id"`
	Items      []domain.LineItem `json:"items"`
	Total      float64           `json:"total"`
	RecordedAt time.Time         `json:"recorded_at"`
}

type SalesPublisher struct {
	writer *kafka.Writer
}

func NewSalesPublisher(topic string, brokers ...string) *SalesPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &SalesPublisher{writer: w}
}

func (p *SalesPublisher) Publish(ctx context.Context, storeID string, items []domain.LineItem, total float64) error {
	event := SaleRecordedEvent{
		SaleID:     uuid.NewString(),
		StoreID:    storeID,
		Items:      items,
		Total:      total,
		RecordedAt: time.Now(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal sale event failed: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(storeID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish sale event failed: %w", err)
	}
	return nil
}

func (p *SalesPublisher) Close() error {
	return p.writer.Close()
}
