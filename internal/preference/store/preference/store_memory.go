package preference

import (
	"context"
	"sync"

	"freshkeep/internal/preference/models"
	id "freshkeep/pkg/domain"
	"freshkeep/pkg/platform/sentinel"
)

// InMemoryStore keeps preferences keyed by user for tests and local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	prefs map[id.UserID]*models.NotificationPreference
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{prefs: make(map[id.UserID]*models.NotificationPreference)}
}

// Get returns the stored preference, sentinel.ErrNotFound when the user
// never saved one.
func (s *InMemoryStore) Get(_ context.Context, userID id.UserID) (*models.NotificationPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.prefs[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *pref
	return &clone, nil
}

// Upsert stores the preference, replacing any previous row.
func (s *InMemoryStore) Upsert(_ context.Context, pref *models.NotificationPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *pref
	s.prefs[pref.UserID] = &clone
	return nil
}
