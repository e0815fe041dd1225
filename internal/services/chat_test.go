package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSend(t *testing.T) {
	e := newEnv(t)
	member := e.register(memberPhone, "Ravi")

	m, err := e.chat.Send(e.ctx, member, e.houseID, services.MessageInput{Text: "  lunch is late today  "})
	require.NoError(t, err)
	assert.Equal(t, models.MessageText, m.Type)
	assert.Equal(t, "lunch is late today", m.Text)
	assert.Equal(t, "Ravi", m.SenderName)
	assert.Equal(t, member.UserID(), m.SenderID)
	require.Len(t, e.live.sent, 1)
	assert.Equal(t, m.ID, e.live.sent[0].ID)

	// agency staff can post in the houses they serve
	_, err = e.chat.Send(e.ctx, e.owner(), e.houseID, services.MessageInput{Type: models.MessageImage, ImageURL: "mem://chat/H1/menu.png"})
	require.NoError(t, err)

	t.Run("validation", func(t *testing.T) {
		for name, in := range map[string]services.MessageInput{
			"blank":      {Text: "   "},
			"too long":   {Text: strings.Repeat("அ", 2001)},
			"no image":   {Type: models.MessageImage},
			"order card": {Type: models.MessageOrder, Text: "x"},
		} {
			_, err := e.chat.Send(e.ctx, member, e.houseID, in)
			assert.True(t, services.IsValidation(err), name)
		}
	})

	_, err = e.chat.Send(e.ctx, member, "H404", services.MessageInput{Text: "hi"})
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Len(t, e.live.sent, 2)
}

func TestChatOutsiderForbidden(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Houses.Create(e.ctx, &models.House{
		ID:              "H2",
		AgencyID:        e.agencyID,
		Name:            "Blue House",
		HouseAdminPhone: "9555555555",
		MemberPhones:    []string{"9555555555"},
	}))
	member := e.register(memberPhone, "Ravi")

	_, err := e.chat.Send(e.ctx, member, "H2", services.MessageInput{Text: "hello"})
	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.ErrorIs(t, e.chat.CanJoin(e.ctx, member, "H2"), services.ErrForbidden)
	assert.NoError(t, e.chat.CanJoin(e.ctx, member, e.houseID))
	assert.NoError(t, e.chat.CanJoin(e.ctx, e.owner(), "H2"))
}

func TestChatShareOrder(t *testing.T) {
	e := newEnv(t)
	member := e.register(memberPhone, "Ravi")
	o := e.placeOrder(member, models.MealLunch, item("rice", 2))

	m, err := e.chat.Share(e.ctx, member, e.houseID, models.MessageOrder, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, m.RefID)
	assert.Equal(t, "lunch order for 2026-10-16, 1 item(s), ₹60.00 (placed)", m.Summary)

	_, err = e.chat.Share(e.ctx, member, e.houseID, models.MessageText, o.ID)
	assert.True(t, services.IsValidation(err))
}

func TestChatShareBill(t *testing.T) {
	e, b := billedHouse(t)
	member := e.login(memberPhone)

	m, err := e.chat.Share(e.ctx, member, e.houseID, models.MessageBill, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bill 2026-10-01 to 2026-10-31, ₹150.00 (issued)", m.Summary)

	_, err = e.chat.Share(e.ctx, member, e.houseID, models.MessageBill, "nope")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestChatHistory(t *testing.T) {
	e := newEnv(t)
	member := e.register(memberPhone, "Ravi")
	for i, text := range []string{"one", "two", "three"} {
		e.at(9, i)
		_, err := e.chat.Send(e.ctx, member, e.houseID, services.MessageInput{Text: text})
		require.NoError(t, err)
	}

	all, err := e.chat.History(e.ctx, member, e.houseID, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Text)
	assert.Equal(t, "three", all[2].Text)

	older, err := e.chat.History(e.ctx, member, e.houseID, all[2].CreatedAt)
	require.NoError(t, err)
	assert.Len(t, older, 2)
}
