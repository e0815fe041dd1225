package session

import (
	"context"
	"sync"
)

// MemorySignOuts is a process-local SignOutBus shared by managers in tests
// and single-node runs.
type MemorySignOuts struct {
	mu        sync.Mutex
	listeners map[int]func(string)
	next      int
}

func NewMemorySignOuts() *MemorySignOuts {
	return &MemorySignOuts{listeners: make(map[int]func(string))}
}

func (b *MemorySignOuts) Publish(_ context.Context, sessionID string) error {
	b.mu.Lock()
	fns := make([]func(string), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(sessionID)
	}
	return nil
}

func (b *MemorySignOuts) Listen(ctx context.Context, fn func(sessionID string)) error {
	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = fn
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	delete(b.listeners, id)
	b.mu.Unlock()
	return ctx.Err()
}

// Listeners reports how many Listen calls are active.
func (b *MemorySignOuts) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
