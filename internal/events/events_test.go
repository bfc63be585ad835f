package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invModels "freshkeep/internal/inventory/models"
	"freshkeep/internal/platform/kafka/consumer"
	id "freshkeep/pkg/domain"
)

type recordingEngine struct {
	created []id.ItemID
	removed []*invModels.TrackedItem
}

func (e *recordingEngine) ItemCreated(_ context.Context, itemID id.ItemID) error {
	e.created = append(e.created, itemID)
	return nil
}

func (e *recordingEngine) ItemRemoved(_ context.Context, item *invModels.TrackedItem) error {
	e.removed = append(e.removed, item)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouterDispatchesByTopic(t *testing.T) {
	engine := &recordingEngine{}
	router := NewRouter(discardLogger())
	router.Register("inventory.item.created", NewItemCreatedHandler(engine))

	itemID := uuid.New()
	msg := &consumer.Message{
		Topic: "inventory.item.created",
		Value: []byte(`{"item_id":"` + itemID.String() + `","user_id":"` + uuid.New().String() + `"}`),
	}
	require.NoError(t, router.Handle(context.Background(), msg))

	require.Len(t, engine.created, 1)
	assert.Equal(t, id.ItemID(itemID), engine.created[0])
}

func TestRouterIgnoresUnknownTopic(t *testing.T) {
	engine := &recordingEngine{}
	router := NewRouter(discardLogger())
	router.Register("inventory.item.created", NewItemCreatedHandler(engine))

	msg := &consumer.Message{Topic: "inventory.item.updated", Value: []byte(`{}`)}
	require.NoError(t, router.Handle(context.Background(), msg))
	assert.Empty(t, engine.created)
}

func TestItemCreatedHandlerRejectsMalformedPayload(t *testing.T) {
	engine := &recordingEngine{}
	h := NewItemCreatedHandler(engine)

	err := h.Handle(context.Background(), &consumer.Message{Value: []byte(`not json`)})
	require.Error(t, err)

	err = h.Handle(context.Background(), &consumer.Message{Value: []byte(`{"item_id":"nope"}`)})
	require.Error(t, err)
	assert.Empty(t, engine.created)
}

func TestItemDeletedHandlerBuildsSnapshot(t *testing.T) {
	engine := &recordingEngine{}
	h := NewItemDeletedHandler(engine)

	expiry := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	itemID, userID := uuid.New(), uuid.New()
	payload := `{
		"item_id":"` + itemID.String() + `",
		"user_id":"` + userID.String() + `",
		"name":"Leftover soup",
		"category":"prepared",
		"quantity":1,
		"unit":"portion",
		"amount":4.5,
		"expiry_date":"` + expiry.Format(time.RFC3339) + `"
	}`
	require.NoError(t, h.Handle(context.Background(), &consumer.Message{Value: []byte(payload)}))

	require.Len(t, engine.removed, 1)
	item := engine.removed[0]
	assert.Equal(t, id.ItemID(itemID), item.ID)
	assert.Equal(t, id.UserID(userID), item.UserID)
	assert.Equal(t, "Leftover soup", item.Name)
	require.NotNil(t, item.ExpiryDate)
	assert.True(t, expiry.Equal(*item.ExpiryDate))
}
