package session

import (
	"context"
	"sync"

	"github.com/fathima-sithara/moms/internal/models"
)

// MemoryFeed is a process-local ProfileFeed. Each subscriber holds only the
// latest profile; older undelivered ones are dropped.
type MemoryFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan *models.Identity
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[string]map[int]chan *models.Identity)}
}

func (f *MemoryFeed) Publish(_ context.Context, u *models.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[u.ID] {
		cp := *u
		offerLatest(ch, &cp)
	}
	return nil
}

func (f *MemoryFeed) Subscribe(_ context.Context, userID string) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan *models.Identity, 1)
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[int]chan *models.Identity)
	}
	f.subs[userID][id] = ch

	return NewSubscription(ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[userID], id)
		if len(f.subs[userID]) == 0 {
			delete(f.subs, userID)
		}
		close(ch)
	}), nil
}

// Subscribers reports how many live subscriptions exist for userID.
func (f *MemoryFeed) Subscribers(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[userID])
}

func offerLatest(ch chan *models.Identity, u *models.Identity) {
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
