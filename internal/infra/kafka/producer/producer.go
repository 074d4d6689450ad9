package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/screenshot/internal/config"
	"github.com/aliskhannn/screenshot/internal/model"
)

// Producer publishes capture events to Kafka.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
	cfg      *config.Kafka
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(
	cfg *config.Kafka,
	s retry.Strategy,
) *Producer {
	producer := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)

	return &Producer{
		Client:   producer,
		cfg:      cfg,
		strategy: s,
	}
}

// Publish serializes the event to JSON and sends it to Kafka.
// The event ID is used as the message key.
func (p *Producer) Publish(ctx context.Context, ev model.CaptureEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := []byte(ev.ID.String())

	if err = p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}
