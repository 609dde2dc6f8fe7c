package auth

import (
	"context"
	"sync"
	"time"
)

// InMemoryTokenStore keeps pending tokens in process memory. Entries are
// never evicted; acceptable for development where the process is
// short-lived.
type InMemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]VerificationToken
}

func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{tokens: make(map[string]VerificationToken)}
}

func (s *InMemoryTokenStore) Save(_ context.Context, token VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Digest] = token
	return nil
}

func (s *InMemoryTokenStore) Get(_ context.Context, digest string) (*VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[digest]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

func (s *InMemoryTokenStore) MarkUsed(_ context.Context, digest string, at time.Time) (*VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[digest]
	if !ok {
		return nil, nil
	}
	token.UsedAt = &at
	s.tokens[digest] = token
	return &token, nil
}
