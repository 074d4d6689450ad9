package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/screenshot/internal/model"
)

// ErrMalformedEvent is returned for messages that do not hold a capture event.
var ErrMalformedEvent = errors.New("malformed capture event")

// repository defines the interface for persisting capture events.
type repository interface {
	SaveEvent(ctx context.Context, ev model.CaptureEvent) error
}

// Handler handles Kafka messages carrying capture events.
type Handler struct {
	repo repository
}

// NewHandler creates a new handler with the given repository.
func NewHandler(r repository) *Handler {
	return &Handler{repo: r}
}

// Handle unmarshals the message and stores the event.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var ev model.CaptureEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal event: %w: %v", ErrMalformedEvent, err)
	}
	if ev.ID == uuid.Nil || ev.Outcome == "" {
		return fmt.Errorf("unmarshal event: %w: missing id or outcome", ErrMalformedEvent)
	}

	if err := h.repo.SaveEvent(ctx, ev); err != nil {
		return fmt.Errorf("store event: %w", err)
	}

	zlog.Logger.Debug().
		Str("id", ev.ID.String()).
		Str("outcome", ev.Outcome).
		Msg("capture event stored")

	return nil
}
