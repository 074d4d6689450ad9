package model

import (
	"time"

	"github.com/google/uuid"
)

// Outcome values recorded on capture events besides the failure kinds.
const (
	OutcomeSuccess   = "success"
	OutcomeTruncated = "truncated"
	OutcomeCached    = "cached"
)

// CaptureEvent describes one served screenshot request.
// Events are published to Kafka and stored by the audit consumer.
type CaptureEvent struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	Size        string    `json:"size"`
	AspectRatio string    `json:"aspect_ratio"`
	Zoom        string    `json:"zoom"`
	Format      string    `json:"format"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Outcome     string    `json:"outcome"`
	Message     string    `json:"message,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCaptureEvent builds an event for the request and its result.
// req may be zero when resolution failed.
func NewCaptureEvent(req CaptureRequest, res CaptureResult, took time.Duration) CaptureEvent {
	ev := CaptureEvent{
		ID:          uuid.New(),
		URL:         req.TargetURL,
		Size:        req.Size,
		AspectRatio: req.AspectRatio,
		Zoom:        req.Zoom,
		Format:      string(req.Format),
		Width:       res.Width,
		Height:      res.Height,
		DurationMs:  took.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}

	switch {
	case res.Failure != nil:
		ev.Outcome = string(res.Failure.Kind)
		ev.Message = res.Failure.Message
	case res.Cached:
		ev.Outcome = OutcomeCached
	case res.Truncated:
		ev.Outcome = OutcomeTruncated
	default:
		ev.Outcome = OutcomeSuccess
	}

	return ev
}
