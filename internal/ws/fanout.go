package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	houseChannel = "ws:houses"
	userChannel  = "ws:users"
)

type userFrame struct {
	UserID string          `json:"userId"`
	Frame  json.RawMessage `json:"frame"`
}

// Fanout relays chat messages and user pushes through Redis so every node
// delivers them to its own clients.
type Fanout struct {
	rdb *redis.Client
	hub *Hub
	log *zap.Logger
}

func NewFanout(rdb *redis.Client, hub *Hub, log *zap.Logger) *Fanout {
	return &Fanout{rdb: rdb, hub: hub, log: log}
}

func (f *Fanout) Broadcast(ctx context.Context, m *models.ChatMessage) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, houseChannel, b).Err()
}

func (f *Fanout) PushToUser(userID string, v interface{}) {
	frame, err := encode(TypeNotification, v)
	if err != nil {
		f.log.Warn("encode push", zap.String("user_id", userID), zap.Error(err))
		return
	}
	b, _ := json.Marshal(userFrame{UserID: userID, Frame: frame})
	if err := f.rdb.Publish(context.Background(), userChannel, b).Err(); err != nil {
		f.log.Warn("push publish failed, delivering locally", zap.String("user_id", userID), zap.Error(err))
		f.hub.pushFrame(userID, frame)
	}
}

// Run relays published frames to the local hub until ctx is done.
func (f *Fanout) Run(ctx context.Context) error {
	ps := f.rdb.Subscribe(ctx, houseChannel, userChannel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("ws fanout: subscription closed")
			}
			f.dispatch(ctx, msg)
		}
	}
}

func (f *Fanout) dispatch(ctx context.Context, msg *redis.Message) {
	switch msg.Channel {
	case houseChannel:
		var m models.ChatMessage
		if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
			f.log.Warn("dropping malformed chat frame", zap.Error(err))
			return
		}
		_ = f.hub.Broadcast(ctx, &m)
	case userChannel:
		var uf userFrame
		if err := json.Unmarshal([]byte(msg.Payload), &uf); err != nil {
			f.log.Warn("dropping malformed user frame", zap.Error(err))
			return
		}
		f.hub.pushFrame(uf.UserID, uf.Frame)
	}
}
