package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vigilcam/internal/core/domain"
)

// EventRepository is the in-memory event store used when Redis is disabled or
// unreachable. Events survive only for the lifetime of the process.
type EventRepository struct {
	mu     sync.RWMutex
	events map[domain.EventID]*domain.CameraEvent
}

// NewEventRepository creates an empty in-memory event repository.
func NewEventRepository() *EventRepository {
	return &EventRepository{
		events: make(map[domain.EventID]*domain.CameraEvent),
	}
}

// Save stores an event, overwriting any previous event with the same ID.
func (r *EventRepository) Save(_ context.Context, event *domain.CameraEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *event
	r.events[event.ID] = &cp
	return nil
}

// GetByID returns the event with the given ID.
func (r *EventRepository) GetByID(_ context.Context, id domain.EventID) (*domain.CameraEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	cp := *event
	return &cp, nil
}

// ListRecent returns up to limit events, newest first.
func (r *EventRepository) ListRecent(_ context.Context, limit int) ([]*domain.CameraEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*domain.CameraEvent, 0, len(r.events))
	for _, event := range r.events {
		cp := *event
		events = append(events, &cp)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// PruneBefore deletes events created before the cutoff and returns how many
// were removed.
func (r *EventRepository) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, event := range r.events {
		if event.CreatedAt.Before(cutoff) {
			delete(r.events, id)
			removed++
		}
	}
	return removed, nil
}
