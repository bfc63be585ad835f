package item

import (
	"context"
	"sort"
	"sync"

	"freshkeep/internal/inventory/models"
	id "freshkeep/pkg/domain"
	"freshkeep/pkg/platform/sentinel"
)

// InMemoryStore holds tracked items for tests and local runs. The engine
// only reads; Put and Remove exist so tests can stage inventory state the
// way the external inventory service would.
type InMemoryStore struct {
	mu      sync.RWMutex
	items   map[id.ItemID]*models.TrackedItem
	deleted map[id.ItemID]bool
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		items:   make(map[id.ItemID]*models.TrackedItem),
		deleted: make(map[id.ItemID]bool),
	}
}

// Put stages an item.
func (s *InMemoryStore) Put(item *models.TrackedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *item
	s.items[item.ID] = &clone
	delete(s.deleted, item.ID)
}

// Remove soft-deletes an item; it stops being "active" immediately.
func (s *InMemoryStore) Remove(itemID id.ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[itemID] = true
}

// ListOwners returns the users owning at least one active item.
func (s *InMemoryStore) ListOwners(_ context.Context) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[id.UserID]bool)
	var owners []id.UserID
	for itemID, item := range s.items {
		if s.deleted[itemID] || seen[item.UserID] {
			continue
		}
		seen[item.UserID] = true
		owners = append(owners, item.UserID)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].String() < owners[j].String() })
	return owners, nil
}

// ListActiveByUser returns the user's non-deleted items.
func (s *InMemoryStore) ListActiveByUser(_ context.Context, userID id.UserID) ([]*models.TrackedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.TrackedItem
	for itemID, item := range s.items {
		if s.deleted[itemID] || item.UserID != userID {
			continue
		}
		clone := *item
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// FindByID returns one active item.
func (s *InMemoryStore) FindByID(_ context.Context, itemID id.ItemID) (*models.TrackedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok || s.deleted[itemID] {
		return nil, sentinel.ErrNotFound
	}
	clone := *item
	return &clone, nil
}
