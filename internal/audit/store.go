package audit

import (
	"context"
	"sync"
)

// Store is an append-only event sink. Sinks can fan out: tests use the
// in-memory store, production wires the Kafka sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// InMemoryStore collects events for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *InMemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}

// ByEntity filters recorded events by entity id.
func (s *InMemoryStore) ByEntity(entityID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]Event, 0)
	for _, event := range s.events {
		if event.EntityID == entityID {
			matched = append(matched, event)
		}
	}
	return matched
}
