package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fathima-sithara/moms/internal/cart"
)

// MemoryAttempts is a process-local LoginAttempts. Windows are not expired.
type MemoryAttempts struct {
	mu     sync.Mutex
	max    int
	counts map[string]int64
}

func NewMemoryAttempts(max int) *MemoryAttempts {
	return &MemoryAttempts{max: max, counts: make(map[string]int64)}
}

func (a *MemoryAttempts) Locked(_ context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[key] >= int64(a.max), nil
}

func (a *MemoryAttempts) Fail(_ context.Context, key string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[key]++
	return a.counts[key], nil
}

func (a *MemoryAttempts) Reset(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.counts, key)
	return nil
}

// MemoryTokens is a process-local TokenStore. TTLs are ignored.
type MemoryTokens struct {
	mu   sync.Mutex
	recs map[string]SessionRecord
}

func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{recs: make(map[string]SessionRecord)}
}

func (s *MemoryTokens) Save(_ context.Context, sessionID, userID, refreshToken string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[sessionID] = SessionRecord{UserID: userID, TokenHash: HashToken(refreshToken), CreatedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryTokens) Lookup(_ context.Context, sessionID string) (*SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[sessionID]
	if !ok {
		return nil, ErrSessionRevoked
	}
	return &rec, nil
}

func (s *MemoryTokens) Rotate(_ context.Context, sessionID, oldToken, newToken string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[sessionID]
	if !ok {
		return ErrSessionRevoked
	}
	if rec.TokenHash != HashToken(oldToken) {
		delete(s.recs, sessionID)
		return ErrTokenReused
	}
	rec.TokenHash = HashToken(newToken)
	s.recs[sessionID] = rec
	return nil
}

func (s *MemoryTokens) Revoke(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, sessionID)
	return nil
}

// MemoryCarts is a process-local CartStore.
type MemoryCarts struct {
	mu    sync.Mutex
	carts map[string]cart.Cart
}

func NewMemoryCarts() *MemoryCarts {
	return &MemoryCarts{carts: make(map[string]cart.Cart)}
}

func (s *MemoryCarts) Get(_ context.Context, key string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.carts[key]
	c.Items = append([]cart.Line(nil), c.Items...)
	return &c, nil
}

func (s *MemoryCarts) Save(_ context.Context, key string, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Empty() {
		delete(s.carts, key)
		return nil
	}
	s.carts[key] = cart.Cart{Items: append([]cart.Line(nil), c.Items...)}
	return nil
}

func (s *MemoryCarts) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, key)
	return nil
}
