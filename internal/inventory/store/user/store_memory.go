package user

import (
	"context"
	"sync"

	id "freshkeep/pkg/domain"
	"freshkeep/pkg/platform/sentinel"
)

// InMemoryStore maps users to addresses for tests and local runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	addresses map[id.UserID]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{addresses: make(map[id.UserID]string)}
}

// Put stages an address.
func (s *InMemoryStore) Put(userID id.UserID, addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[userID] = addr
}

// EmailAddress returns the user's address, sentinel.ErrNotFound if unknown.
func (s *InMemoryStore) EmailAddress(_ context.Context, userID id.UserID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr, ok := s.addresses[userID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return addr, nil
}
