package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeHonoursSignOutOnAnotherNode(t *testing.T) {
	e := newEnv(t)
	nodeB, authB := e.node()

	res, err := e.auth.Register(e.ctx, memberPhone, password, "Ravi")
	require.NoError(t, err)
	sid, uid := res.Tokens.SessionID, res.User.ID

	sess, err := authB.Resume(e.ctx, sid, uid)
	require.NoError(t, err)
	require.True(t, sess.IsRegistered())
	assert.Equal(t, 1, nodeB.Len())
	assert.Equal(t, 2, e.feed.Subscribers(uid))

	require.NoError(t, e.auth.SignOut(e.ctx, e.session(res)))

	_, err = authB.Resume(e.ctx, sid, uid)
	assert.ErrorIs(t, err, services.ErrInvalidRefreshToken)
	assert.Equal(t, 0, nodeB.Len())
	assert.Equal(t, 0, e.feed.Subscribers(uid))
}

func TestResumeHonoursReuseRevocationOnAnotherNode(t *testing.T) {
	e := newEnv(t)
	_, authB := e.node()

	res, err := e.auth.Register(e.ctx, memberPhone, password, "Ravi")
	require.NoError(t, err)
	sid, uid := res.Tokens.SessionID, res.User.ID
	_, err = authB.Resume(e.ctx, sid, uid)
	require.NoError(t, err)

	_, err = e.auth.Refresh(e.ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	_, err = e.auth.Refresh(e.ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, services.ErrInvalidRefreshToken)

	_, err = authB.Resume(e.ctx, sid, uid)
	assert.ErrorIs(t, err, services.ErrInvalidRefreshToken)
}

func TestSignOutClosesSessionsOnOtherNodes(t *testing.T) {
	e := newEnv(t)
	bus := session.NewMemorySignOuts()
	nodeA, authA := e.node(session.WithSignOutBus(bus))
	nodeB, authB := e.node(session.WithSignOutBus(bus))

	ctx, cancel := context.WithCancel(e.ctx)
	defer cancel()
	go func() { _ = nodeB.Run(ctx, time.Hour) }()
	require.Eventually(t, func() bool { return bus.Listeners() == 1 }, e2eWait, e2eTick)

	res, err := authA.Register(e.ctx, memberPhone, password, "Ravi")
	require.NoError(t, err)
	sid, uid := res.Tokens.SessionID, res.User.ID
	_, err = authB.Resume(e.ctx, sid, uid)
	require.NoError(t, err)

	live, ok := nodeA.Get(sid)
	require.True(t, ok)
	require.NoError(t, authA.SignOut(e.ctx, live))

	// node B drops the session and its profile subscription without waiting
	// for another request
	assert.Eventually(t, func() bool { return nodeB.Len() == 0 }, e2eWait, e2eTick)
	assert.Equal(t, 0, e.feed.Subscribers(uid))
}
