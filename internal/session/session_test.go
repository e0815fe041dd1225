package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile(id string, name string) *models.Identity {
	return &models.Identity{ID: id, Name: name, Role: models.RoleNameCustomer, Status: models.UserStatusActive}
}

func TestSessionLifecycle(t *testing.T) {
	s := session.New("s1", nil)
	assert.Equal(t, session.Anonymous, s.State())

	require.NoError(t, s.Begin())
	assert.Equal(t, session.CredentialPending, s.State())
	assert.ErrorIs(t, s.Begin(), session.ErrInvalidState)

	s.Fail()
	assert.Equal(t, session.Anonymous, s.State())

	require.NoError(t, s.Begin())
	require.NoError(t, s.Authenticate("u1", nil))
	assert.Equal(t, session.AuthenticatedUnregistered, s.State())
	_, ok := s.Role()
	assert.False(t, ok)

	s.Apply(profile("u1", "Asha"))
	assert.Equal(t, session.AuthenticatedRegistered, s.State())
	role, ok := s.Role()
	require.True(t, ok)
	assert.Equal(t, models.Customer, role)
	assert.Equal(t, "cart:s1", s.CartKey())

	s.Close()
	assert.Equal(t, session.Anonymous, s.State())
	assert.Empty(t, s.UserID())
	assert.Nil(t, s.Identity())
	_, ok = s.Role()
	assert.False(t, ok)
	assert.False(t, s.IsRegistered())
	assert.ErrorIs(t, s.Begin(), session.ErrClosed)
}

func TestApplyIgnoresOtherUsers(t *testing.T) {
	s := session.New("s1", nil)
	require.NoError(t, s.Begin())
	require.NoError(t, s.Authenticate("u1", profile("u1", "Asha")))

	s.Apply(profile("u2", "Someone"))
	assert.Equal(t, "Asha", s.Identity().Name)
}

func TestWatchKeepsOneSubscription(t *testing.T) {
	feed := session.NewMemoryFeed()
	s := session.New("s1", nil)
	require.NoError(t, s.Begin())
	require.NoError(t, s.Authenticate("u1", profile("u1", "Asha")))

	ctx := context.Background()
	require.NoError(t, s.Watch(ctx, feed))
	require.NoError(t, s.Watch(ctx, feed))
	require.NoError(t, s.Watch(ctx, feed))
	assert.Equal(t, 1, feed.Subscribers("u1"))
	assert.True(t, s.Watching())

	require.NoError(t, feed.Publish(ctx, profile("u1", "Asha K")))
	assert.Eventually(t, func() bool { return s.Identity().Name == "Asha K" }, time.Second, 5*time.Millisecond)

	s.Close()
	assert.Equal(t, 0, feed.Subscribers("u1"))
	assert.False(t, s.Watching())

	require.NoError(t, feed.Publish(ctx, profile("u1", "After close")))
	assert.Nil(t, s.Identity())
}

func TestWatchRequiresUser(t *testing.T) {
	s := session.New("s1", nil)
	assert.ErrorIs(t, s.Watch(context.Background(), session.NewMemoryFeed()), session.ErrInvalidState)
}

func TestUpdatesStream(t *testing.T) {
	feed := session.NewMemoryFeed()
	m := session.NewManager(feed, nil)
	s := m.Begin()
	require.NoError(t, m.Activate(context.Background(), s, "u1", profile("u1", "Asha")))

	ch, stop := s.Updates()
	defer stop()

	require.NoError(t, feed.Publish(context.Background(), profile("u1", "Renamed")))
	select {
	case got := <-ch:
		assert.Equal(t, "Renamed", got.Name)
	case <-time.After(time.Second):
		t.Fatal("no profile update delivered")
	}

	m.Close(s.ID())
	_, open := <-ch
	assert.False(t, open)
}

type failingFeed struct{ session.MemoryFeed }

func (f *failingFeed) Subscribe(context.Context, string) (*session.Subscription, error) {
	return nil, errors.New("feed down")
}

func TestManager(t *testing.T) {
	feed := session.NewMemoryFeed()
	m := session.NewManager(feed, nil)
	ctx := context.Background()

	s := m.Begin()
	assert.Equal(t, session.CredentialPending, s.State())
	require.NoError(t, m.Activate(ctx, s, "u1", profile("u1", "Asha")))

	got, ok := m.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Len(t, m.ForUser("u1"), 1)

	restored, err := m.Restore(ctx, s.ID(), "u1", profile("u1", "Asha"))
	require.NoError(t, err)
	assert.Same(t, s, restored)

	r2, err := m.Restore(ctx, "other", "u1", profile("u1", "Asha"))
	require.NoError(t, err)
	assert.Equal(t, "other", r2.ID())
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 2, feed.Subscribers("u1"))

	m.Close(s.ID())
	_, ok = m.Get(s.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, feed.Subscribers("u1"))

	m.Shutdown()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, feed.Subscribers("u1"))

	bad := session.NewManager(&failingFeed{}, nil)
	s3 := bad.Begin()
	assert.Error(t, bad.Activate(ctx, s3, "u1", nil))
	assert.Equal(t, 0, bad.Len())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSweepClosesIdleSessions(t *testing.T) {
	feed := session.NewMemoryFeed()
	clock := &fakeClock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	m := session.NewManager(feed, nil, session.WithClock(clock.Now))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 50; i++ {
		s := m.Begin()
		require.NoError(t, m.Activate(ctx, s, "u1", profile("u1", "Asha")))
		ids = append(ids, s.ID())
	}
	assert.Equal(t, 50, feed.Subscribers("u1"))

	clock.Advance(10 * time.Minute)
	_, ok := m.Get(ids[0])
	require.True(t, ok)
	clock.Advance(10 * time.Minute)

	assert.Equal(t, 49, m.Sweep(15*time.Minute))
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, feed.Subscribers("u1"))
	_, ok = m.Get(ids[0])
	assert.True(t, ok)

	clock.Advance(time.Hour)
	assert.Equal(t, 1, m.Sweep(15*time.Minute))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, feed.Subscribers("u1"))
}

func TestRevokeReachesOtherManagers(t *testing.T) {
	feed := session.NewMemoryFeed()
	bus := session.NewMemorySignOuts()
	nodeA := session.NewManager(feed, nil, session.WithSignOutBus(bus))
	nodeB := session.NewManager(feed, nil, session.WithSignOutBus(bus))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- nodeB.Run(ctx, time.Hour) }()
	require.Eventually(t, func() bool { return bus.Listeners() == 1 }, time.Second, 5*time.Millisecond)

	s := nodeA.Begin()
	require.NoError(t, nodeA.Activate(ctx, s, "u1", profile("u1", "Asha")))
	restored, err := nodeB.Restore(ctx, s.ID(), "u1", profile("u1", "Asha"))
	require.NoError(t, err)
	assert.Equal(t, 2, feed.Subscribers("u1"))

	nodeA.Revoke(ctx, s.ID())
	assert.Equal(t, 0, nodeA.Len())
	assert.Eventually(t, func() bool { return nodeB.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, feed.Subscribers("u1"))
	assert.Equal(t, session.Anonymous, restored.State())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, 0, bus.Listeners())
}
