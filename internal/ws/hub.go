// Package ws pushes live updates to websocket clients: the profile stream of
// a session and the chat room of a house.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fathima-sithara/moms/internal/metrics"
	"github.com/fathima-sithara/moms/internal/models"
	"go.uber.org/zap"
)

const (
	TypeMessage      = "message"
	TypeProfile      = "profile"
	TypeNotification = "notification"
	TypeError        = "error"
)

// Envelope is the frame sent to every client.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func encode(typ string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Type: typ, Data: data})
}

// Hub tracks the clients connected to this process, by house room and by
// user.
type Hub struct {
	mu sync.RWMutex
	rooms map[string]map[*Client]struct{}
	users map[string]map[*Client]struct{}
	log *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		users: make(map[string]map[*Client]struct{}),
		log:   log,
	}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.houseID != "" {
		if _, ok := h.rooms[c.houseID]; !ok {
			h.rooms[c.houseID] = make(map[*Client]struct{})
		}
		h.rooms[c.houseID][c] = struct{}{}
	}
	if _, ok := h.users[c.userID]; !ok {
		h.users[c.userID] = make(map[*Client]struct{})
	}
	h.users[c.userID][c] = struct{}{}
	metrics.WSConnections.Inc()
}

func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := false
	if set, ok := h.rooms[c.houseID]; ok {
		if _, ok := set[c]; ok {
			removed = true
		}
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, c.houseID)
		}
	}
	if set, ok := h.users[c.userID]; ok {
		if _, ok := set[c]; ok {
			removed = true
		}
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.userID)
		}
	}
	if removed {
		metrics.WSConnections.Dec()
	}
}

// Room reports how many clients follow houseID.
func (h *Hub) Room(houseID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[houseID])
}

func (h *Hub) deliver(set map[*Client]struct{}, frame []byte) int {
	n := 0
	for c := range set {
		if c.offer(frame) {
			n++
		} else {
			h.log.Debug("dropping frame for slow client", zap.String("user_id", c.userID))
		}
	}
	return n
}

// Broadcast delivers m to the clients of its house on this node.
func (h *Hub) Broadcast(_ context.Context, m *models.ChatMessage) error {
	frame, err := encode(TypeMessage, m)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliver(h.rooms[m.HouseID], frame)
	return nil
}

// PushToUser sends v to every connection of userID on this node.
func (h *Hub) PushToUser(userID string, v interface{}) {
	frame, err := encode(TypeNotification, v)
	if err != nil {
		h.log.Warn("encode push", zap.String("user_id", userID), zap.Error(err))
		return
	}
	h.pushFrame(userID, frame)
}

func (h *Hub) pushFrame(userID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliver(h.users[userID], frame)
}
