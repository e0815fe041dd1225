package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Object is a stored blob in MemoryStore.
type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps blobs in process memory. URLs use the mem:// scheme.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	public  bool
}

func NewMemoryStore(public bool) *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object), public: public}
}

func (m *MemoryStore) Upload(_ context.Context, key, contentType string, data []byte) (string, error) {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.objects[key] = Object{ContentType: contentType, Data: cp}
	m.mu.Unlock()
	if !m.public {
		return "", nil
	}
	return "mem://" + key, nil
}

func (m *MemoryStore) PresignURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %q not found", key)
	}
	return fmt.Sprintf("mem://%s?expires=%d", key, int(ttl.Seconds())), nil
}

func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o, ok
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
