package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const signOutChannel = "session:signout"

// SignOutBus broadcasts revoked session ids to every node over Redis pub/sub.
type SignOutBus struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewSignOutBus(rdb *redis.Client, log *zap.Logger) *SignOutBus {
	return &SignOutBus{rdb: rdb, log: log}
}

func (b *SignOutBus) Publish(ctx context.Context, sessionID string) error {
	return b.rdb.Publish(ctx, signOutChannel, sessionID).Err()
}

func (b *SignOutBus) Listen(ctx context.Context, fn func(sessionID string)) error {
	ps := b.rdb.Subscribe(ctx, signOutChannel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			b.log.Debug("session revoked elsewhere", zap.String("session_id", msg.Payload))
			fn(msg.Payload)
		}
	}
}
