package roster

import (
	"context"
	"sync"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	persons map[string]Person
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{persons: make(map[string]Person)}
}

func (s *InMemoryStore) Get(_ context.Context, medicaidID string) (*Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	person, ok := s.persons[medicaidID]
	if !ok {
		return nil, nil
	}
	return &person, nil
}

func (s *InMemoryStore) Put(_ context.Context, person Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons[person.MedicaidID] = person
	return nil
}
