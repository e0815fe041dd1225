package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"go.uber.org/zap"
)

var (
	ErrClosed       = errors.New("session closed")
	ErrInvalidState = errors.New("invalid session state transition")
)

type Session struct {
	id  string
	log *zap.Logger

	mu       sync.RWMutex
	state    State
	userID   string
	identity *models.Identity
	role     models.Role
	closed   bool
	seen     time.Time

	// watchMu serializes Watch and Close so that at most one subscription is
	// ever live.
	watchMu  sync.Mutex
	sub      *Subscription
	pumpDone chan struct{}

	lmu       sync.Mutex
	nextL     int
	listeners map[int]chan *models.Identity
}

func New(id string, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{id: id, log: log, listeners: make(map[int]chan *models.Identity)}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CartKey() string { return "cart:" + s.id }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Identity returns a copy of the current profile, or nil when unregistered.
func (s *Session) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	cp := *s.identity
	return &cp
}

func (s *Session) Role() (models.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role, s.role != nil
}

func (s *Session) IsRegistered() bool { return s.State() == AuthenticatedRegistered }

// Touch records activity at t.
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	if t.After(s.seen) {
		s.seen = t
	}
	s.mu.Unlock()
}

// LastSeen is the time of the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen
}

// Begin marks a login or registration attempt in flight.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state != Anonymous {
		return ErrInvalidState
	}
	s.state = CredentialPending
	return nil
}

// Fail returns a pending session to anonymous.
func (s *Session) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == CredentialPending {
		s.state = Anonymous
	}
}

// Authenticate binds the credential's user id. A nil identity leaves the
// session authenticated but unregistered.
func (s *Session) Authenticate(userID string, identity *models.Identity) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != CredentialPending {
		s.mu.Unlock()
		return ErrInvalidState
	}
	s.userID = userID
	s.setIdentityLocked(identity)
	s.mu.Unlock()
	return nil
}

func (s *Session) setIdentityLocked(identity *models.Identity) {
	if identity == nil {
		s.identity, s.role = nil, nil
		s.state = AuthenticatedUnregistered
		return
	}
	cp := *identity
	s.identity = &cp
	role, err := cp.ResolvedRole()
	if err != nil {
		s.log.Warn("profile has unknown role", zap.String("user_id", cp.ID), zap.String("role", string(cp.Role)))
		s.role = nil
	} else {
		s.role = role
	}
	s.state = AuthenticatedRegistered
}

// Apply replaces the profile mirror and notifies listeners. Updates for a
// different user are ignored.
func (s *Session) Apply(identity *models.Identity) {
	if identity == nil {
		return
	}
	s.mu.Lock()
	if s.closed || s.userID != identity.ID {
		s.mu.Unlock()
		return
	}
	s.setIdentityLocked(identity)
	s.mu.Unlock()
	s.broadcast(identity)
}

// Watch subscribes to the user's profile. Any previous subscription is
// cancelled, and its pump has exited, before the new one is opened.
func (s *Session) Watch(ctx context.Context, feed ProfileFeed) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	s.stopLocked()

	s.mu.RLock()
	closed, userID := s.closed, s.userID
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if userID == "" {
		return ErrInvalidState
	}

	sub, err := feed.Subscribe(ctx, userID)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	s.sub, s.pumpDone = sub, done
	go s.pump(sub, done)
	return nil
}

func (s *Session) pump(sub *Subscription, done chan struct{}) {
	defer close(done)
	for identity := range sub.C {
		s.Apply(identity)
	}
}

func (s *Session) stopLocked() {
	if s.sub == nil {
		return
	}
	s.sub.Cancel()
	<-s.pumpDone
	s.sub, s.pumpDone = nil, nil
}

// Watching reports whether a profile subscription is live.
func (s *Session) Watching() bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return s.sub != nil
}

// Close cancels the subscription first, then marks the session closed, drops
// the profile mirror and releases listeners.
func (s *Session) Close() {
	s.watchMu.Lock()
	s.stopLocked()
	s.watchMu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.state = Anonymous
	s.userID = ""
	s.identity, s.role = nil, nil
	s.mu.Unlock()

	s.lmu.Lock()
	for id, ch := range s.listeners {
		close(ch)
		delete(s.listeners, id)
	}
	s.lmu.Unlock()
}

// Updates streams every profile change seen by this session until the
// returned stop func is called or the session closes.
func (s *Session) Updates() (<-chan *models.Identity, func()) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	ch := make(chan *models.Identity, 1)
	id := s.nextL
	s.nextL++
	s.listeners[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			if c, ok := s.listeners[id]; ok {
				close(c)
				delete(s.listeners, id)
			}
		})
	}
}

func (s *Session) broadcast(identity *models.Identity) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	for _, ch := range s.listeners {
		cp := *identity
		offerLatest(ch, &cp)
	}
}
