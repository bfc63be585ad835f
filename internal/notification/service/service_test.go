package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	invModels "freshkeep/internal/inventory/models"
	itemStore "freshkeep/internal/inventory/store/item"
	userStore "freshkeep/internal/inventory/store/user"
	"freshkeep/internal/notification/compose"
	"freshkeep/internal/notification/delivery"
	"freshkeep/internal/notification/models"
	"freshkeep/internal/notification/store/ledger"
	prefModels "freshkeep/internal/preference/models"
	prefService "freshkeep/internal/preference/service"
	prefStore "freshkeep/internal/preference/store/preference"
	id "freshkeep/pkg/domain"
)

type dispatchCall struct {
	recipient string
	title     string
}

// fakeDispatcher records every dispatch and returns a single email outcome,
// sent or failed depending on failAll.
type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []dispatchCall
	failAll bool
}

func (d *fakeDispatcher) Dispatch(_ context.Context, recipient string, msg compose.Message) []delivery.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{recipient: recipient, title: msg.Title})

	status := models.DeliverySent
	detail := "accepted"
	if d.failAll {
		status = models.DeliveryFailed
		detail = "smtp connection refused"
	}
	return []delivery.Outcome{{Channel: "email", Status: status, Detail: detail}}
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// fakeClock lets tests advance engine time day by day.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type EngineSuite struct {
	suite.Suite

	items      *itemStore.InMemoryStore
	users      *userStore.InMemoryStore
	prefs      *prefService.Service
	prefsStore *prefStore.InMemoryStore
	ledger     *ledger.InMemoryStore
	dispatcher *fakeDispatcher
	clock      *fakeClock

	engine *Service

	userID id.UserID
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.items = itemStore.NewInMemory()
	s.users = userStore.NewInMemory()
	s.prefsStore = prefStore.NewInMemory()
	s.prefs = prefService.New(s.prefsStore)
	s.ledger = ledger.NewInMemory()
	s.dispatcher = &fakeDispatcher{}
	s.clock = &fakeClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}

	s.engine = New(s.items, s.prefs, s.ledger, s.dispatcher, s.users,
		WithClock(s.clock.Now),
	)

	s.userID = id.UserID(uuid.New())
	s.users.Put(s.userID, "jane.doe@example.com")
}

func (s *EngineSuite) addItem(name string, expiry *time.Time) *invModels.TrackedItem {
	item := &invModels.TrackedItem{
		ID:         id.ItemID(uuid.New()),
		UserID:     s.userID,
		Name:       name,
		Category:   "dairy",
		Quantity:   1,
		Unit:       "l",
		Amount:     2.50,
		ExpiryDate: expiry,
		CreatedAt:  s.clock.Now(),
		UpdatedAt:  s.clock.Now(),
	}
	s.items.Put(item)
	return item
}

func (s *EngineSuite) daysFromNow(days int) *time.Time {
	t := s.clock.Now().AddDate(0, 0, days)
	return &t
}

func (s *EngineSuite) recordsByKind(kind models.TransitionKind) []*models.NotificationRecord {
	all, err := s.ledger.ListByUser(context.Background(), s.userID)
	s.Require().NoError(err)
	var out []*models.NotificationRecord
	for _, r := range all {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func (s *EngineSuite) TestSweepIsIdempotent() {
	s.addItem("Milk", s.daysFromNow(2))

	ctx := context.Background()
	s.Require().NoError(s.engine.EvaluateAll(ctx))
	s.Require().NoError(s.engine.EvaluateAll(ctx))
	s.Require().NoError(s.engine.EvaluateAll(ctx))

	records := s.recordsByKind(models.KindUpcomingExpiry)
	s.Require().Len(records, 1)
	s.Equal(1, s.dispatcher.callCount())

	s.Require().NotNil(records[0].Snapshot.DaysUntilExpiry)
	s.Equal(2, *records[0].Snapshot.DaysUntilExpiry)
}

func (s *EngineSuite) TestUpcomingThenExpiredAreDistinctTransitions() {
	s.addItem("Yogurt", s.daysFromNow(2))
	ctx := context.Background()

	s.Require().NoError(s.engine.EvaluateAll(ctx))
	s.Len(s.recordsByKind(models.KindUpcomingExpiry), 1)

	// Three days later the same item has crossed into expired.
	s.clock.Set(s.clock.Now().AddDate(0, 0, 3))
	s.Require().NoError(s.engine.EvaluateAll(ctx))

	s.Len(s.recordsByKind(models.KindUpcomingExpiry), 1)
	s.Len(s.recordsByKind(models.KindExpired), 1)
	s.Equal(2, s.dispatcher.callCount())
}

func (s *EngineSuite) TestLeadTimeBoundary() {
	s.addItem("Inside window", s.daysFromNow(3))
	s.addItem("Outside window", s.daysFromNow(4))

	s.Require().NoError(s.engine.EvaluateAll(context.Background()))

	records := s.recordsByKind(models.KindUpcomingExpiry)
	s.Require().Len(records, 1)
	s.Equal("Inside window", records[0].Snapshot.Name)
}

func (s *EngineSuite) TestExpiringTodayIsUpcomingNotExpired() {
	s.addItem("Bread", s.daysFromNow(0))

	s.Require().NoError(s.engine.EvaluateAll(context.Background()))

	s.Len(s.recordsByKind(models.KindUpcomingExpiry), 1)
	s.Empty(s.recordsByKind(models.KindExpired))
}

func (s *EngineSuite) TestExpiredItemNotified() {
	s.addItem("Old cheese", s.daysFromNow(-2))

	s.Require().NoError(s.engine.EvaluateAll(context.Background()))

	records := s.recordsByKind(models.KindExpired)
	s.Require().Len(records, 1)
	s.Equal("Old cheese has expired", records[0].Title)
	s.Empty(s.recordsByKind(models.KindUpcomingExpiry))
}

func (s *EngineSuite) TestItemWithoutExpiryIsNeverEvaluated() {
	s.addItem("Rice", nil)

	s.Require().NoError(s.engine.EvaluateAll(context.Background()))

	all, err := s.ledger.ListByUser(context.Background(), s.userID)
	s.Require().NoError(err)
	s.Empty(all)
	s.Zero(s.dispatcher.callCount())
}

func (s *EngineSuite) TestDisabledEmailSuppressesEverything() {
	_, err := s.prefs.Update(context.Background(), s.userID, prefService.UpdateParams{
		EmailEnabled: false,
		LeadDays:     prefModels.DefaultLeadDays,
	})
	s.Require().NoError(err)

	s.addItem("Expired anyway", s.daysFromNow(-1))
	s.addItem("Due tomorrow", s.daysFromNow(1))

	s.Require().NoError(s.engine.EvaluateAll(context.Background()))

	all, lerr := s.ledger.ListByUser(context.Background(), s.userID)
	s.Require().NoError(lerr)
	s.Empty(all, "disabled users must not accumulate records")
	s.Zero(s.dispatcher.callCount())
}

func (s *EngineSuite) TestCustomLeadDaysRespected() {
	_, err := s.prefs.Update(context.Background(), s.userID, prefService.UpdateParams{
		EmailEnabled: true,
		LeadDays:     7,
	})
	s.Require().NoError(err)

	s.addItem("Long shelf life", s.daysFromNow(6))

	s.Require().NoError(s.engine.EvaluateAll(context.Background()))

	s.Len(s.recordsByKind(models.KindUpcomingExpiry), 1)
}

// A failed delivery must leave the reservation in place: the record stays,
// the failed attempt is logged, and nothing is retried on the next sweep.
func (s *EngineSuite) TestDeliveryFailureIsDurableAndTerminal() {
	s.dispatcher.failAll = true
	s.addItem("Milk", s.daysFromNow(1))
	ctx := context.Background()

	s.Require().NoError(s.engine.EvaluateAll(ctx))

	records := s.recordsByKind(models.KindUpcomingExpiry)
	s.Require().Len(records, 1)

	entries, err := s.ledger.ListDeliveries(ctx, records[0].ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.DeliveryFailed, entries[0].Status)
	s.Equal("smtp connection refused", entries[0].Detail)

	// The provider recovers, but the decision was final.
	s.dispatcher.failAll = false
	s.Require().NoError(s.engine.EvaluateAll(ctx))
	s.Equal(1, s.dispatcher.callCount())
	s.Len(s.recordsByKind(models.KindUpcomingExpiry), 1)
}

func (s *EngineSuite) TestSuccessfulDeliveryLogged() {
	s.addItem("Milk", s.daysFromNow(1))
	ctx := context.Background()

	s.Require().NoError(s.engine.EvaluateAll(ctx))

	records := s.recordsByKind(models.KindUpcomingExpiry)
	s.Require().Len(records, 1)

	entries, err := s.ledger.ListDeliveries(ctx, records[0].ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("email", entries[0].Channel)
	s.Equal(models.DeliverySent, entries[0].Status)
}

// One user's broken preferences must not stop the sweep for everyone else.
func (s *EngineSuite) TestPerUserIsolation() {
	broken := id.UserID(uuid.New())
	s.users.Put(broken, "broken@example.com")
	brokenItem := &invModels.TrackedItem{
		ID:         id.ItemID(uuid.New()),
		UserID:     broken,
		Name:       "Cursed",
		ExpiryDate: s.daysFromNow(1),
	}
	s.items.Put(brokenItem)
	s.addItem("Fine", s.daysFromNow(1))

	engine := New(s.items, &failingResolver{inner: s.prefs, failFor: broken}, s.ledger, s.dispatcher, s.users,
		WithClock(s.clock.Now),
	)

	s.Require().NoError(engine.EvaluateAll(context.Background()))

	s.Len(s.recordsByKind(models.KindUpcomingExpiry), 1)
	brokenRecords, err := s.ledger.ListByUser(context.Background(), broken)
	s.Require().NoError(err)
	s.Empty(brokenRecords)
}

type failingResolver struct {
	inner   *prefService.Service
	failFor id.UserID
}

func (r *failingResolver) Resolve(ctx context.Context, userID id.UserID) (*prefModels.NotificationPreference, error) {
	if userID == r.failFor {
		return nil, errors.New("preference backend down")
	}
	return r.inner.Resolve(ctx, userID)
}

// Full lifecycle of a single item across sweeps: silent while outside the
// window, one upcoming notification inside it, one expired notification
// after the date passes, and nothing else ever.
func (s *EngineSuite) TestItemLifecycleAcrossSweeps() {
	expiry := s.clock.Now().AddDate(0, 0, 5)
	s.addItem("Ham", &expiry)
	ctx := context.Background()

	s.Require().NoError(s.engine.EvaluateAll(ctx))
	all, err := s.ledger.ListByUser(ctx, s.userID)
	s.Require().NoError(err)
	s.Empty(all, "five days out with a three day lead is silent")

	s.clock.Set(expiry.AddDate(0, 0, -2))
	for range 4 {
		s.Require().NoError(s.engine.EvaluateAll(ctx))
	}
	s.Len(s.recordsByKind(models.KindUpcomingExpiry), 1)

	s.clock.Set(expiry.AddDate(0, 0, 1))
	for range 3 {
		s.Require().NoError(s.engine.EvaluateAll(ctx))
	}
	s.Len(s.recordsByKind(models.KindUpcomingExpiry), 1)
	s.Len(s.recordsByKind(models.KindExpired), 1)
	s.Equal(2, s.dispatcher.callCount())
}

func (s *EngineSuite) TestItemCreatedRecordsConfirmationAndEvaluates() {
	item := s.addItem("Fresh fish", s.daysFromNow(1))
	ctx := context.Background()

	s.Require().NoError(s.engine.ItemCreated(ctx, item.ID))

	s.Len(s.recordsByKind(models.KindItemAdded), 1)
	s.Len(s.recordsByKind(models.KindUpcomingExpiry), 1)

	// The confirmation is in-app only; the expiry warning is emailed.
	s.Equal(1, s.dispatcher.callCount())
}

func (s *EngineSuite) TestEvaluateItemRunsBothPassesOnly() {
	item := s.addItem("Eggs", s.daysFromNow(-1))
	ctx := context.Background()

	s.Require().NoError(s.engine.EvaluateItem(ctx, item.ID))
	s.Require().NoError(s.engine.EvaluateItem(ctx, item.ID))

	s.Len(s.recordsByKind(models.KindExpired), 1)
	s.Empty(s.recordsByKind(models.KindItemAdded), "no confirmation outside the created flow")
}

func (s *EngineSuite) TestItemCreatedForMissingItemIsNoop() {
	err := s.engine.ItemCreated(context.Background(), id.ItemID(uuid.New()))
	s.Require().NoError(err)
	s.Zero(s.dispatcher.callCount())
}

func (s *EngineSuite) TestItemCreatedEmailsWhenConfigured() {
	engine := New(s.items, s.prefs, s.ledger, s.dispatcher, s.users,
		WithClock(s.clock.Now),
		WithEmailOnAdded(true),
	)
	item := s.addItem("Rice", nil)

	s.Require().NoError(engine.ItemCreated(context.Background(), item.ID))

	s.Len(s.recordsByKind(models.KindItemAdded), 1)
	s.Equal(1, s.dispatcher.callCount())
}

func (s *EngineSuite) TestItemRemovedUsesSnapshotAndDeduplicates() {
	item := s.addItem("Leftovers", s.daysFromNow(1))
	s.items.Remove(item.ID)
	ctx := context.Background()

	s.Require().NoError(s.engine.ItemRemoved(ctx, item))
	s.Require().NoError(s.engine.ItemRemoved(ctx, item))

	records := s.recordsByKind(models.KindItemRemoved)
	s.Require().Len(records, 1)
	s.Equal("Leftovers", records[0].Snapshot.Name)
	s.Zero(s.dispatcher.callCount())
}

type countingDirectory struct {
	inner *userStore.InMemoryStore
	calls int
}

func (d *countingDirectory) EmailAddress(ctx context.Context, userID id.UserID) (string, error) {
	d.calls++
	return d.inner.EmailAddress(ctx, userID)
}

// Removal confirmations never deliver, so the engine must not hit the user
// directory for them.
func (s *EngineSuite) TestItemRemovedSkipsAddressLookup() {
	dir := &countingDirectory{inner: s.users}
	engine := New(s.items, s.prefs, s.ledger, s.dispatcher, dir,
		WithClock(s.clock.Now),
	)

	item := s.addItem("Leftovers", s.daysFromNow(1))
	s.items.Remove(item.ID)

	s.Require().NoError(engine.ItemRemoved(context.Background(), item))

	s.Len(s.recordsByKind(models.KindItemRemoved), 1)
	s.Zero(dir.calls)
}

func (s *EngineSuite) TestMarkReadAndUnreadCount() {
	s.addItem("Milk", s.daysFromNow(1))
	ctx := context.Background()
	s.Require().NoError(s.engine.EvaluateAll(ctx))

	count, err := s.engine.UnreadCount(ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(1, count)

	records, err := s.engine.ListNotifications(ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)

	s.Require().NoError(s.engine.MarkRead(ctx, records[0].ID))

	count, err = s.engine.UnreadCount(ctx, s.userID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *EngineSuite) TestMissingAddressStillReservesRecord() {
	orphan := id.UserID(uuid.New())
	s.items.Put(&invModels.TrackedItem{
		ID:         id.ItemID(uuid.New()),
		UserID:     orphan,
		Name:       "Unclaimed",
		ExpiryDate: s.daysFromNow(1),
	})

	s.Require().NoError(s.engine.EvaluateAll(context.Background()))

	records, err := s.ledger.ListByUser(context.Background(), orphan)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(models.KindUpcomingExpiry, records[0].Kind)
}
