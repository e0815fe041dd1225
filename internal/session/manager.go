package session

import (
	"context"
	"sync"
	"time"

	"github.com/fathima-sithara/moms/internal/metrics"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SignOutBus carries session revocations between nodes.
type SignOutBus interface {
	Publish(ctx context.Context, sessionID string) error
	// Listen calls fn for every revoked session id until ctx is done.
	Listen(ctx context.Context, fn func(sessionID string)) error
}

type Option func(*Manager)

// WithSignOutBus makes Revoke reach the other nodes, and Run close sessions
// revoked elsewhere.
func WithSignOutBus(bus SignOutBus) Option {
	return func(m *Manager) { m.bus = bus }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns every live session in this process.
type Manager struct {
	feed ProfileFeed
	bus  SignOutBus
	now  func() time.Time
	log  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(feed ProfileFeed, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{feed: feed, log: log, now: time.Now, sessions: make(map[string]*Session)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Feed() ProfileFeed { return m.feed }

// Begin returns a fresh, unregistered session in credential-pending state.
func (m *Manager) Begin() *Session {
	s := New(uuid.NewString(), m.log)
	_ = s.Begin()
	return s
}

// Activate authenticates s, starts its profile subscription and makes it
// resolvable by id.
func (m *Manager) Activate(ctx context.Context, s *Session, userID string, identity *models.Identity) error {
	if err := m.start(ctx, s, userID, identity); err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return nil
}

func (m *Manager) start(ctx context.Context, s *Session, userID string, identity *models.Identity) error {
	if err := s.Authenticate(userID, identity); err != nil {
		return err
	}
	s.Touch(m.now())
	if err := s.Watch(context.WithoutCancel(ctx), m.feed); err != nil {
		s.Close()
		return err
	}
	return nil
}

// Restore recreates a session under a known id, used when a valid token
// refers to a session this process has not seen.
func (m *Manager) Restore(ctx context.Context, id, userID string, identity *models.Identity) (*Session, error) {
	if existing, ok := m.Get(id); ok {
		return existing, nil
	}

	s := New(id, m.log)
	_ = s.Begin()
	if err := m.start(ctx, s, userID, identity); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if raced, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.Close()
		return raced, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the live session and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Touch(m.now())
	}
	return s, ok
}

// Close tears the session down; its subscription is cancelled before the
// session is dropped.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Revoke closes the session here and tells the other nodes to do the same.
func (m *Manager) Revoke(ctx context.Context, id string) {
	m.Close(id)
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, id); err != nil {
		m.log.Warn("failed to broadcast sign-out", zap.String("session_id", id), zap.Error(err))
	}
}

// Sweep closes sessions with no activity for longer than idle. A later
// request with a still-valid token restores them.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	left := len(m.sessions)
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	metrics.ActiveSessions.Set(float64(left))
	return len(stale)
}

// Run sweeps idle sessions and, with a sign-out bus, closes sessions revoked
// on other nodes. It returns when ctx is done.
func (m *Manager) Run(ctx context.Context, idle time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		every := idle / 2
		if every < time.Second {
			every = time.Second
		}
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				if n := m.Sweep(idle); n > 0 {
					m.log.Debug("closed idle sessions", zap.Int("count", n))
				}
			}
		}
	})
	if m.bus != nil {
		g.Go(func() error {
			err := m.bus.Listen(gctx, m.Close)
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// ForUser lists the live sessions of a user.
func (m *Manager) ForUser(userID string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Session
	for _, s := range m.sessions {
		if s.UserID() == userID {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
