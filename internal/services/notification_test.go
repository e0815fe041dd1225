package services_test

import (
	"testing"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationInbox(t *testing.T) {
	e := newEnv(t)
	member := e.register(memberPhone, "Ravi")
	for _, n := range []*models.Notification{
		{ID: "n1", UserID: member.UserID(), EventID: "e1", Type: models.EventBillGenerated, Title: "New bill"},
		{ID: "n2", UserID: member.UserID(), EventID: "e2", Type: models.EventPaymentConfirmed, Title: "Payment confirmed"},
		{ID: "n3", UserID: "someone-else", EventID: "e1", Type: models.EventBillGenerated, Title: "New bill"},
	} {
		require.NoError(t, e.store.Notifications.Create(e.ctx, n))
	}

	inbox, err := e.notes.List(e.ctx, member)
	require.NoError(t, err)
	assert.Len(t, inbox.Items, 2)
	assert.EqualValues(t, 2, inbox.Unread)

	require.NoError(t, e.notes.MarkRead(e.ctx, member, "n1"))
	assert.ErrorIs(t, e.notes.MarkRead(e.ctx, member, "n3"), services.ErrNotFound)
	inbox, err = e.notes.List(e.ctx, member)
	require.NoError(t, err)
	assert.EqualValues(t, 1, inbox.Unread)

	require.NoError(t, e.notes.MarkAllRead(e.ctx, member))
	inbox, err = e.notes.List(e.ctx, member)
	require.NoError(t, err)
	assert.Zero(t, inbox.Unread)
}

func TestNotificationSettings(t *testing.T) {
	e := newEnv(t)
	member := e.register(memberPhone, "Ravi")
	other := e.login(memberPhone)

	st, err := e.notes.UpdateSettings(e.ctx, member, false)
	require.NoError(t, err)
	assert.False(t, st.SMS)

	stored, err := e.store.Users.FindByID(e.ctx, member.UserID())
	require.NoError(t, err)
	assert.False(t, stored.Notifications.SMS)
	assert.Eventually(t, func() bool {
		return !other.Identity().Notifications.SMS
	}, e2eWait, e2eTick)
}
