package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameOf(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case b := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(b, &env))
		return env
	default:
		t.Fatal("no frame queued")
	}
	return Envelope{}
}

func TestHubRoomDelivery(t *testing.T) {
	h := NewHub(nil)
	a := NewClient(nil, "u1", "H1")
	b := NewClient(nil, "u2", "H1")
	other := NewClient(nil, "u3", "H2")
	for _, c := range []*Client{a, b, other} {
		h.Add(c)
	}
	assert.Equal(t, 2, h.Room("H1"))

	require.NoError(t, h.Broadcast(context.Background(), &models.ChatMessage{ID: "m1", HouseID: "H1", Text: "hi"}))
	for _, c := range []*Client{a, b} {
		env := frameOf(t, c)
		assert.Equal(t, TypeMessage, env.Type)
		assert.Equal(t, "m1", env.Data.(map[string]any)["id"])
	}
	assert.Empty(t, other.send)

	h.Remove(a)
	assert.Equal(t, 1, h.Room("H1"))
	h.Remove(b)
	assert.Zero(t, h.Room("H1"))
}

func TestHubPushToUser(t *testing.T) {
	h := NewHub(nil)
	profile := NewClient(nil, "u1", "")
	room := NewClient(nil, "u1", "H1")
	h.Add(profile)
	h.Add(room)

	h.PushToUser("u1", map[string]string{"title": "Bill issued"})
	assert.Equal(t, TypeNotification, frameOf(t, profile).Type)
	assert.Equal(t, TypeNotification, frameOf(t, room).Type)

	h.PushToUser("nobody", "ignored")
}

func TestClientDropsWhenFullOrClosed(t *testing.T) {
	c := NewClient(nil, "u1", "H1")
	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.offer([]byte("x")))
	}
	assert.False(t, c.offer([]byte("overflow")))

	c2 := NewClient(nil, "u1", "H1")
	c2.Close()
	c2.Close()
	assert.False(t, c2.offer([]byte("late")))
}
