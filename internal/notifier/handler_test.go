package notifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fathima-sithara/moms/internal/events"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/notifier"
	"github.com/fathima-sithara/moms/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSMS) Send(_ context.Context, phone, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, phone)
	return nil
}

type fakeDLQ struct {
	msgs [][]byte
}

func (d *fakeDLQ) PublishMessage(_ context.Context, _ string, v []byte) error {
	d.msgs = append(d.msgs, v)
	return nil
}

type fakePush struct {
	mu    sync.Mutex
	users []string
}

func (p *fakePush) PushToUser(userID string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
}

func seedUsers(t *testing.T, store *memory.Store) {
	ctx := context.Background()
	for _, u := range []*models.Identity{
		{ID: "owner", Phone: "9000000001", Name: "Owner", Role: models.RoleNameAgencyOwner, AgencyID: "A1"},
		{ID: "helper", Phone: "9000000002", Name: "Helper", Role: models.RoleNameAgencyHelper, AgencyID: "A1"},
		{ID: "asha", Phone: "9876543210", Name: "Asha", Role: models.RoleNameHouseAdmin, AgencyID: "A1", HouseID: "H1",
			Notifications: models.NotificationSettings{SMS: true}},
		{ID: "ravi", Phone: "9876500000", Name: "Ravi", Role: models.RoleNameCustomer, AgencyID: "A1", HouseID: "H1"},
	} {
		require.NoError(t, store.Users.Save(ctx, u))
	}
}

func raw(t *testing.T, ev *models.Event) []byte {
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleEvent_Recipients(t *testing.T) {
	store := memory.New()
	seedUsers(t, store)
	sms, dlq, push := &fakeSMS{}, &fakeDLQ{}, &fakePush{}
	h := notifier.NewHandler(store.Users, store.Notifications, sms, push, dlq, 2, time.Millisecond, zap.NewNop())
	ctx := context.Background()

	placed := events.New(models.EventOrderPlaced, "A1", "H1", "ravi", "o1", map[string]string{"meal_type": "lunch"})
	require.NoError(t, h.HandleEvent(ctx, raw(t, placed)))
	for _, id := range []string{"owner", "helper"} {
		n, _ := store.Notifications.CountUnread(ctx, id)
		assert.Equal(t, int64(1), n, id)
	}
	n, _ := store.Notifications.CountUnread(ctx, "ravi")
	assert.Zero(t, n)

	bill := events.New(models.EventBillGenerated, "A1", "H1", "", "b1", map[string]string{"amount": "300.00"})
	require.NoError(t, h.HandleEvent(ctx, raw(t, bill)))
	n, _ = store.Notifications.CountUnread(ctx, "ravi")
	assert.Equal(t, int64(1), n)

	// only asha has SMS enabled
	assert.Equal(t, []string{"9876543210"}, sms.sent)
	assert.ElementsMatch(t, []string{"owner", "helper", "asha", "ravi"}, push.users)
	assert.Empty(t, dlq.msgs)
}

func TestHandleEvent_Redelivery(t *testing.T) {
	store := memory.New()
	seedUsers(t, store)
	sms := &fakeSMS{}
	h := notifier.NewHandler(store.Users, store.Notifications, sms, nil, &fakeDLQ{}, 2, time.Millisecond, zap.NewNop())
	ctx := context.Background()

	ev := events.New(models.EventPaymentConfirmed, "A1", "H1", "asha", "p1", map[string]string{"amount": "100.00"})
	payload := raw(t, ev)
	require.NoError(t, h.HandleEvent(ctx, payload))
	require.NoError(t, h.HandleEvent(ctx, payload))

	list, err := store.Notifications.ListByUser(ctx, "asha", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Len(t, sms.sent, 1)
	assert.Equal(t, "Payment confirmed", list[0].Title)
}

func TestHandleEvent_DeadLetters(t *testing.T) {
	store := memory.New()
	seedUsers(t, store)
	store.Notifications.CreateErr = errors.New("mongo down")
	dlq := &fakeDLQ{}
	h := notifier.NewHandler(store.Users, store.Notifications, nil, nil, dlq, 2, time.Millisecond, zap.NewNop())
	ctx := context.Background()

	ev := events.New(models.EventOrderStatusChanged, "A1", "H1", "ravi", "o1", map[string]string{"status": "ready"})
	assert.Error(t, h.HandleEvent(ctx, raw(t, ev)))
	require.Len(t, dlq.msgs, 1)

	unknown := &models.Event{ID: "e1", Type: "order.exploded"}
	err := h.HandleEvent(ctx, raw(t, unknown))
	assert.ErrorIs(t, err, notifier.ErrUnknownEvent)
	assert.Len(t, dlq.msgs, 2)

	assert.Error(t, h.HandleEvent(ctx, []byte("{not json")))
	assert.Len(t, dlq.msgs, 3)
}

func TestHandleEvent_SMSFailureIsNotFatal(t *testing.T) {
	store := memory.New()
	seedUsers(t, store)
	sms := &fakeSMS{err: errors.New("provider down")}
	dlq := &fakeDLQ{}
	h := notifier.NewHandler(store.Users, store.Notifications, sms, nil, dlq, 1, time.Millisecond, zap.NewNop())

	ev := events.New(models.EventPaymentRejected, "A1", "H1", "asha", "p1", map[string]string{"reason": "blurry"})
	require.NoError(t, h.HandleEvent(context.Background(), raw(t, ev)))
	assert.Empty(t, dlq.msgs)
}
