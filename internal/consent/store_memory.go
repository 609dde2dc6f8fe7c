package consent

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore keeps consent records in process memory. Used in tests
// and when no database is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record // keyed by record ID
	pairs   map[string]string // "userID/providerID" -> record ID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]Record),
		pairs:   make(map[string]string),
	}
}

func pairKey(userID, providerID string) string {
	return userID + "/" + providerID
}

func (s *InMemoryStore) GetByUserAndProvider(_ context.Context, userID, providerID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.pairs[pairKey(userID, providerID)]
	if !ok {
		return nil, nil
	}
	record := s.records[id]
	return &record, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, record := range s.records {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Create(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(record.UserID, record.ProviderID)
	if _, exists := s.pairs[key]; exists {
		return fmt.Errorf("consent record already exists for %s", key)
	}
	s.records[record.ID] = record
	s.pairs[key] = record.ID
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; !exists {
		return fmt.Errorf("consent record %s not found", record.ID)
	}
	s.records[record.ID] = record
	return nil
}
