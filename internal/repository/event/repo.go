package event

import (
	"context"
	"fmt"

	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/screenshot/internal/model"
)

// Repository stores capture events in PostgreSQL.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// SaveEvent inserts a capture event. Redelivered events are ignored.
func (r *Repository) SaveEvent(ctx context.Context, ev model.CaptureEvent) error {
	query := `
		INSERT INTO capture_events (id, url, size, aspect_ratio, zoom, format, width, height, outcome, message, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.ExecContext(
		ctx, query,
		ev.ID, ev.URL, ev.Size, ev.AspectRatio, ev.Zoom, ev.Format,
		ev.Width, ev.Height, ev.Outcome, ev.Message, ev.DurationMs, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save: failed to save capture event: %w", err)
	}

	return nil
}
