package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/aliskhannn/screenshot/internal/model"
)

type fakeRepo struct {
	saved []model.CaptureEvent
	err   error
}

func (r *fakeRepo) SaveEvent(_ context.Context, ev model.CaptureEvent) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, ev)
	return nil
}

func TestHandleStoresEvent(t *testing.T) {
	ev := model.CaptureEvent{
		ID:        uuid.New(),
		URL:       "https://example.com/",
		Size:      "small",
		Format:    "jpeg",
		Width:     375,
		Height:    375,
		Outcome:   model.OutcomeSuccess,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	repo := &fakeRepo{}
	if err := NewHandler(repo).Handle(context.Background(), kafka.Message{Value: data}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected one saved event, got %d", len(repo.saved))
	}
	if got := repo.saved[0]; got.ID != ev.ID || got.Outcome != ev.Outcome || !got.CreatedAt.Equal(ev.CreatedAt) {
		t.Errorf("stored %+v, want %+v", got, ev)
	}
}

func TestHandleMalformed(t *testing.T) {
	repo := &fakeRepo{}
	h := NewHandler(repo)

	for _, body := range []string{"not json", `{"url":"https://example.com/"}`} {
		err := h.Handle(context.Background(), kafka.Message{Value: []byte(body)})
		if !errors.Is(err, ErrMalformedEvent) {
			t.Errorf("%q: expected ErrMalformedEvent, got %v", body, err)
		}
	}
	if len(repo.saved) != 0 {
		t.Errorf("malformed events must not be stored")
	}
}

func TestHandleRepositoryError(t *testing.T) {
	data, _ := json.Marshal(model.CaptureEvent{ID: uuid.New(), Outcome: model.OutcomeCached})

	err := NewHandler(&fakeRepo{err: errors.New("db down")}).Handle(context.Background(), kafka.Message{Value: data})
	if err == nil {
		t.Fatal("expected error")
	}
}
