package cache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const profileChannelPrefix = "profile:"

// ProfileFeed fans profile writes out to every node through Redis pub/sub.
type ProfileFeed struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewProfileFeed(rdb *redis.Client, log *zap.Logger) *ProfileFeed {
	return &ProfileFeed{rdb: rdb, log: log}
}

func (f *ProfileFeed) Publish(ctx context.Context, u *models.Identity) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, profileChannelPrefix+u.ID, b).Err()
}

func (f *ProfileFeed) Subscribe(ctx context.Context, userID string) (*session.Subscription, error) {
	ps := f.rdb.Subscribe(ctx, profileChannelPrefix+userID)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan *models.Identity, 1)
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-stop:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var u models.Identity
				if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
					f.log.Warn("dropping malformed profile update", zap.String("user_id", userID), zap.Error(err))
					continue
				}
				offer(out, &u, stop)
			}
		}
	}()

	return session.NewSubscription(out, func() {
		stopOnce.Do(func() {
			close(stop)
			// the connection may already be gone; nothing to report after cancel
			if err := ps.Close(); err != nil {
				f.log.Debug("profile subscription close", zap.String("user_id", userID), zap.Error(err))
			}
		})
	}), nil
}

// offer delivers u, replacing an undelivered older profile.
func offer(ch chan *models.Identity, u *models.Identity, stop <-chan struct{}) {
	for {
		select {
		case ch <- u:
			return
		case <-stop:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
