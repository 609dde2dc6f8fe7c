package provider

import (
	"context"
	"sort"
	"sync"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{providers: make(map[string]Provider)}
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []Provider
	for _, p := range s.providers {
		if p.Active {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Name < active[j].Name })
	return active, nil
}

func (s *InMemoryStore) Put(_ context.Context, provider Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[provider.ID] = provider
	return nil
}
