package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
)

type ChatRepo struct {
	mu   sync.RWMutex
	rows []models.ChatMessage
}

func (r *ChatRepo) Insert(_ context.Context, m *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	r.rows = append(r.rows, *m)
	return nil
}

func (r *ChatRepo) List(_ context.Context, houseID string, limit int64, before time.Time) ([]*models.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*models.ChatMessage
	for _, x := range r.rows {
		if x.HouseID == houseID && (before.IsZero() || x.CreatedAt.Before(before)) {
			x := x
			all = append(all, &x)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if limit > 0 && int64(len(all)) > limit {
		all = all[int64(len(all))-limit:]
	}
	if all == nil {
		all = make([]*models.ChatMessage, 0)
	}
	return all, nil
}

type NotificationRepo struct {
	mu   sync.RWMutex
	rows map[string]models.Notification
	// CreateErr, when set, is returned by Create.
	CreateErr error
}

func (r *NotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	for _, x := range r.rows {
		if x.UserID == n.UserID && x.EventID == n.EventID {
			return repository.ErrDuplicate
		}
	}
	n.CreatedAt = now()
	r.rows[n.ID] = *n
	return nil
}

func (r *NotificationRepo) ListByUser(_ context.Context, userID string, limit int64) ([]*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Notification, 0)
	for _, x := range r.rows {
		if x.UserID == userID {
			x := x
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[id]
	if !ok || x.UserID != userID {
		return repository.ErrNotFound
	}
	x.Read = true
	r.rows[id] = x
	return nil
}

func (r *NotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, x := range r.rows {
		if x.UserID == userID {
			x.Read = true
			r.rows[id] = x
		}
	}
	return nil
}

func (r *NotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, x := range r.rows {
		if x.UserID == userID && !x.Read {
			n++
		}
	}
	return n, nil
}
