package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/screenshot/internal/config"
)

// eventHandler defines the interface for handling capture event messages.
type eventHandler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// Consumer represents a Kafka consumer along with its configuration
// and the handler that stores capture events.
type Consumer struct {
	Client       *wbfkafka.Consumer
	eventHandler eventHandler
	cfg          *config.Kafka
	strategy     retry.Strategy
	backoff      time.Duration
}

// New creates a new Consumer.
// - cfg: Kafka configuration struct
// - s: retry strategy
// - eh: handler for capture event messages
func New(
	cfg *config.Kafka,
	s retry.Strategy,
	eh eventHandler,
) *Consumer {
	consumer := wbfkafka.NewConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID)

	return &Consumer{
		Client:       consumer,
		eventHandler: eh,
		cfg:          cfg,
		strategy:     s,
		backoff:      500 * time.Millisecond,
	}
}

// Consume continuously fetches messages from Kafka, stores them using the handler,
// and commits offsets after successful processing. It stops gracefully on context cancellation.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().
		Str("topic", c.cfg.Topic).
		Msg("starting consumer")

	for {
		// Exit if context is canceled (graceful shutdown).
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping consumer")
			return
		}

		// Fetch a message from Kafka with retries.
		var msg kafka.Message
		err := retry.Do(func() error {
			var fetchErr error
			msg, fetchErr = c.Client.Fetch(ctx)
			return fetchErr
		}, c.strategy)

		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			// Log error and retry after a short backoff.
			zlog.Logger.Err(err).Msg("failed to fetch message")
			time.Sleep(c.backoff)
			continue
		}

		// Store the event using the eventHandler.
		if err := c.eventHandler.Handle(ctx, msg); err != nil {
			zlog.Logger.Err(err).
				Str("message", string(msg.Value)).
				Msg("failed to store capture event")
			continue
		}

		// Commit the message with retries.
		err = retry.Do(func() error {
			return c.Client.Commit(ctx, msg)
		}, c.strategy)
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to commit message after retries")
		}

		zlog.Logger.Debug().
			Int64("offset", msg.Offset).
			Msg("message handled")
	}
}
