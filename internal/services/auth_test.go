package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterHouseAdmin(t *testing.T) {
	e := newEnv(t)

	res, err := e.auth.Register(e.ctx, adminPhone, password, "Lakshmi")
	require.NoError(t, err)

	assert.True(t, res.Registered)
	assert.Equal(t, models.DashboardHouseAdmin, res.Dashboard)
	assert.Equal(t, "Green Villa", res.HouseName)
	assert.Equal(t, models.RoleNameHouseAdmin, res.User.Role)
	assert.Equal(t, "H1", res.User.HouseID)
	assert.Equal(t, "A1", res.User.AgencyID)
	assert.NotEmpty(t, res.Tokens.AccessToken)

	sess := e.session(res)
	assert.Equal(t, session.AuthenticatedRegistered, sess.State())
}

func TestRegisterMemberIsCustomer(t *testing.T) {
	e := newEnv(t)

	res, err := e.auth.Register(e.ctx, "91234 56780", password, "Ravi")
	require.NoError(t, err)
	assert.Equal(t, models.RoleNameCustomer, res.User.Role)
	assert.Equal(t, memberPhone, res.User.Phone)
	assert.Equal(t, models.DashboardCustomer, res.Dashboard)
}

func TestRegisterUnknownPhone(t *testing.T) {
	e := newEnv(t)
	before := e.store.Credentials.Len()

	_, err := e.auth.Register(e.ctx, "1111111111", password, "Stranger")
	assert.ErrorIs(t, err, services.ErrNotAuthorized)
	assert.Equal(t, before, e.store.Credentials.Len())

	// unknown phones are rejected before the password is looked at
	_, err = e.auth.Register(e.ctx, "1111111111", "x", "Stranger")
	assert.ErrorIs(t, err, services.ErrNotAuthorized)
}

func TestRegisterRejects(t *testing.T) {
	e := newEnv(t)
	before := e.store.Credentials.Len()

	_, err := e.auth.Register(e.ctx, adminPhone, "12345", "Lakshmi")
	assert.ErrorIs(t, err, services.ErrWeakPassword)
	assert.Equal(t, before, e.store.Credentials.Len())

	e.register(adminPhone, "Lakshmi")
	_, err = e.auth.Register(e.ctx, adminPhone, password, "Lakshmi")
	assert.ErrorIs(t, err, services.ErrPhoneRegistered)
}

func TestRegisterRemovesCredentialWhenProfileFails(t *testing.T) {
	e := newEnv(t)
	before := e.store.Credentials.Len()
	e.store.Users.SaveErr = errors.New("write failed")

	_, err := e.auth.Register(e.ctx, memberPhone, password, "Ravi")
	require.Error(t, err)
	assert.Equal(t, before, e.store.Credentials.Len())
	assert.Equal(t, 0, e.sessions.Len())

	e.store.Users.SaveErr = nil
	e.register(memberPhone, "Ravi")
}

func TestLoginLockout(t *testing.T) {
	e := newEnv(t)
	e.register(memberPhone, "Ravi")

	for i := 0; i < 3; i++ {
		_, err := e.auth.Login(e.ctx, memberPhone, "wrong-password")
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	}
	_, err := e.auth.Login(e.ctx, memberPhone, password)
	assert.ErrorIs(t, err, services.ErrTooManyAttempts)
}

func TestLoginSuccessResetsAttempts(t *testing.T) {
	e := newEnv(t)
	e.register(memberPhone, "Ravi")

	for i := 0; i < 2; i++ {
		_, err := e.auth.Login(e.ctx, memberPhone, "wrong-password")
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	}
	e.login(memberPhone)
	for i := 0; i < 2; i++ {
		_, err := e.auth.Login(e.ctx, memberPhone, "wrong-password")
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	}
	e.login(memberPhone)
}

func TestLoginRecreatesMissingProfile(t *testing.T) {
	e := newEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.store.Credentials.Create(e.ctx, &models.Credential{
		ID:           "orphan",
		Identifier:   e.accounts.Identifier("9555555555"),
		PasswordHash: string(hash),
	}))

	res, err := e.auth.Login(e.ctx, "9555555555", password)
	require.NoError(t, err)
	assert.True(t, res.Registered)
	assert.Equal(t, "User", res.User.Name)
	assert.Equal(t, models.RoleNameCustomer, res.User.Role)

	u, err := e.store.Users.FindByID(e.ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, "9555555555", u.Phone)
}

func TestLoginWithoutProfileStaysUnregistered(t *testing.T) {
	e := newEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.store.Credentials.Create(e.ctx, &models.Credential{
		ID:           "orphan",
		Identifier:   e.accounts.Identifier("9555555555"),
		PasswordHash: string(hash),
	}))
	e.store.Users.SaveErr = errors.New("write failed")

	res, err := e.auth.Login(e.ctx, "9555555555", password)
	require.NoError(t, err)
	assert.False(t, res.Registered)
	assert.Equal(t, session.AuthenticatedUnregistered.String(), res.State)

	sess := e.session(res)
	_, err = e.orders.Mine(e.ctx, sess, models.OrderFilter{})
	assert.ErrorIs(t, err, services.ErrNotRegistered)
}

func TestAgencyOwnerBackfill(t *testing.T) {
	e := newEnv(t)
	owner, err := e.store.Users.FindByPhone(e.ctx, ownerPhone)
	require.NoError(t, err)
	owner.AgencyID = ""
	require.NoError(t, e.store.Users.Save(e.ctx, owner))

	res, err := e.auth.Login(e.ctx, ownerPhone, password)
	require.NoError(t, err)
	assert.Equal(t, "A1", res.User.AgencyID)
	assert.Equal(t, models.DashboardAgency, res.Dashboard)
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	e := newEnv(t)
	res, err := e.auth.Register(e.ctx, memberPhone, password, "Ravi")
	require.NoError(t, err)

	next, err := e.auth.Refresh(e.ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, res.Tokens.SessionID, next.SessionID)
	assert.NotEqual(t, res.Tokens.RefreshToken, next.RefreshToken)

	_, err = e.auth.Refresh(e.ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, services.ErrInvalidRefreshToken)
	_, ok := e.sessions.Get(res.Tokens.SessionID)
	assert.False(t, ok)

	_, err = e.auth.Refresh(e.ctx, next.RefreshToken)
	assert.ErrorIs(t, err, services.ErrInvalidRefreshToken)
}

func TestResumeRebuildsSession(t *testing.T) {
	e := newEnv(t)
	res, err := e.auth.Register(e.ctx, memberPhone, password, "Ravi")
	require.NoError(t, err)
	sid, uid := res.Tokens.SessionID, res.User.ID

	// simulate a restart: the process forgets the session, the token store
	// still knows it
	e.sessions.Close(sid)

	sess, err := e.auth.Resume(e.ctx, sid, uid)
	require.NoError(t, err)
	assert.Equal(t, sid, sess.ID())
	assert.True(t, sess.IsRegistered())

	_, err = e.auth.Resume(e.ctx, sid, "someone-else")
	assert.ErrorIs(t, err, services.ErrInvalidRefreshToken)
}

func TestSignOut(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")
	_, err := e.cart.AddItem(e.ctx, sess, "dal", models.MealLunch, 1)
	require.NoError(t, err)

	require.NoError(t, e.auth.SignOut(e.ctx, sess))
	_, ok := e.sessions.Get(sess.ID())
	assert.False(t, ok)
	c, err := e.carts.Get(e.ctx, sess.CartKey())
	require.NoError(t, err)
	assert.True(t, c.Empty())

	_, err = e.auth.Resume(e.ctx, sess.ID(), sess.UserID())
	assert.ErrorIs(t, err, services.ErrInvalidRefreshToken)
}

func TestUpdateProfileReachesOtherSessions(t *testing.T) {
	e := newEnv(t)
	first := e.register(memberPhone, "Ravi")
	second := e.login(memberPhone)

	name := "Ravi K"
	_, err := e.auth.UpdateProfile(e.ctx, first, services.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ravi K", first.Identity().Name)

	assert.Eventually(t, func() bool {
		return second.Identity().Name == "Ravi K"
	}, time.Second, 10*time.Millisecond)
}

func TestRefreshUserDataPicksUpRoleChange(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")
	e.register(adminPhone, "Lakshmi")

	_, err := e.houses.ChangeAdmin(e.ctx, e.owner(), e.houseID, memberPhone)
	require.NoError(t, err)

	u, err := e.auth.RefreshUserData(e.ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, models.RoleNameHouseAdmin, u.Role)
	role, ok := sess.Role()
	require.True(t, ok)
	assert.Equal(t, models.HouseAdmin, role)
}
