package ledger

import (
	"context"
	"sort"
	"sync"

	"freshkeep/internal/notification/models"
	id "freshkeep/pkg/domain"
	"freshkeep/pkg/platform/sentinel"
)

// InMemoryStore is the in-process ledger used by unit tests and local runs.
// Reservation atomicity comes from the store mutex: check and insert happen
// under one critical section, mirroring the unique index in Postgres.
type InMemoryStore struct {
	mu         sync.RWMutex
	records    map[id.NotificationID]*models.NotificationRecord
	reserved   map[reservationKey]id.NotificationID
	deliveries map[id.NotificationID][]*models.DeliveryLogEntry
}

type reservationKey struct {
	userID id.UserID
	itemID id.ItemID
	kind   models.TransitionKind
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records:    make(map[id.NotificationID]*models.NotificationRecord),
		reserved:   make(map[reservationKey]id.NotificationID),
		deliveries: make(map[id.NotificationID][]*models.DeliveryLogEntry),
	}
}

// Reserve claims the (user, item, kind) transition. Returns
// sentinel.ErrConflict if the transition was already notified.
func (s *InMemoryStore) Reserve(_ context.Context, record *models.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ItemID != nil {
		key := reservationKey{userID: record.UserID, itemID: *record.ItemID, kind: record.Kind}
		if _, exists := s.reserved[key]; exists {
			return sentinel.ErrConflict
		}
		s.reserved[key] = record.ID
	}

	clone := *record
	s.records[record.ID] = &clone
	return nil
}

// HasNotified reports whether the transition has already been reserved.
func (s *InMemoryStore) HasNotified(_ context.Context, userID id.UserID, itemID id.ItemID, kind models.TransitionKind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.reserved[reservationKey{userID: userID, itemID: itemID, kind: kind}]
	return exists, nil
}

// ListByUser returns the user's notifications, newest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.NotificationRecord
	for _, record := range s.records {
		if record.UserID == userID {
			clone := *record
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkRead flags a notification as read.
func (s *InMemoryStore) MarkRead(_ context.Context, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[notificationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.Read = true
	return nil
}

// UnreadCount counts the user's unread notifications.
func (s *InMemoryStore) UnreadCount(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, record := range s.records {
		if record.UserID == userID && !record.Read {
			count++
		}
	}
	return count, nil
}

// AppendDelivery records one channel attempt for a notification.
func (s *InMemoryStore) AppendDelivery(_ context.Context, entry *models.DeliveryLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[entry.NotificationID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *entry
	s.deliveries[entry.NotificationID] = append(s.deliveries[entry.NotificationID], &clone)
	return nil
}

// ListDeliveries returns the delivery attempts for a notification in
// insertion order.
func (s *InMemoryStore) ListDeliveries(_ context.Context, notificationID id.NotificationID) ([]*models.DeliveryLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.deliveries[notificationID]
	out := make([]*models.DeliveryLogEntry, 0, len(entries))
	for _, entry := range entries {
		clone := *entry
		out = append(out, &clone)
	}
	return out, nil
}
