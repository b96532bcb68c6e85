package alert

import (
	"context"
	"encoding/json"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"github.com/jmorales/etlwatch/internal/config"
)

// Publisher emits pipeline run results to a Kafka topic so an external
// alerting consumer can act on quality failures. The core itself never
// decides to halt on a failed check.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(cfg config.AlertConfig) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish writes one JSON message per call, keyed by status so consumers can
// partition-filter failures.
func (p *Publisher) Publish(ctx context.Context, status string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(status),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
