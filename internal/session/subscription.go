package session

import (
	"context"
	"sync"

	"github.com/fathima-sithara/moms/internal/models"
)

// ProfileFeed delivers profile documents to whoever watches a user id.
type ProfileFeed interface {
	Publish(ctx context.Context, u *models.Identity) error
	Subscribe(ctx context.Context, userID string) (*Subscription, error)
}

// Subscription is the handle for one live profile stream. C is closed after
// Cancel has released the underlying resources.
type Subscription struct {
	C <-chan *models.Identity

	once   sync.Once
	cancel func()
}

func NewSubscription(c <-chan *models.Identity, cancel func()) *Subscription {
	return &Subscription{C: c, cancel: cancel}
}

// Cancel is idempotent.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
