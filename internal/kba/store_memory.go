package kba

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type InMemoryStore struct {
	mu       sync.Mutex
	attempts map[string]*Attempt
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{attempts: make(map[string]*Attempt)}
}

func (s *InMemoryStore) Get(_ context.Context, identifier string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.attempts[identifier]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (s *InMemoryStore) RecordFailure(_ context.Context, identifier, origin string, now time.Time) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.attempts[identifier]
	if !ok {
		record = &Attempt{Identifier: identifier}
		s.attempts[identifier] = record
	}
	record.Count++
	record.LastAttemptAt = now
	record.LastOrigin = origin

	clone := *record
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, record *Attempt) error {
	if record == nil {
		return fmt.Errorf("attempt record is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.attempts[record.Identifier] = &clone
	return nil
}
