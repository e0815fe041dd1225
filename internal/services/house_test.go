package services_test

import (
	"errors"
	"testing"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sysadminPhone = "9999999999"

func (e *env) sysadmin() *session.Session {
	e.t.Helper()
	if _, err := e.store.Users.FindByPhone(e.ctx, sysadminPhone); err != nil {
		_, err := e.accounts.Create(e.ctx, sysadminPhone, password, &models.Identity{Name: "Admin", Role: models.RoleNameSystemAdmin})
		require.NoError(e.t, err)
	}
	return e.login(sysadminPhone)
}

func TestCreateAgency(t *testing.T) {
	e := newEnv(t)
	admin := e.sysadmin()

	a, err := e.agencies.Create(e.ctx, admin, services.AgencyInput{
		Name:          "Tiffin Co",
		OwnerName:     "Meera",
		OwnerPhone:    "9000000002",
		OwnerPassword: password,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AgencyStatusActive, a.Status)

	res, err := e.auth.Login(e.ctx, "9000000002", password)
	require.NoError(t, err)
	assert.Equal(t, a.ID, res.User.AgencyID)
	assert.Equal(t, models.DashboardAgency, res.Dashboard)

	_, err = e.agencies.Create(e.ctx, e.owner(), services.AgencyInput{Name: "x"})
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestCreateAgencyRemovesOwnerOnFailure(t *testing.T) {
	e := newEnv(t)
	admin := e.sysadmin()
	before := e.store.Credentials.Len()

	e.store.Agencies.CreateErr = errors.New("write failed")
	_, err := e.agencies.Create(e.ctx, admin, services.AgencyInput{
		Name:          "Tiffin Co",
		OwnerName:     "Meera",
		OwnerPhone:    "9000000002",
		OwnerPassword: password,
	})
	require.Error(t, err)
	assert.Equal(t, before, e.store.Credentials.Len())

	_, err = e.auth.Login(e.ctx, "9000000002", password)
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAgencyStatusAndDelete(t *testing.T) {
	e := newEnv(t)
	admin := e.sysadmin()

	a, err := e.agencies.SetStatus(e.ctx, admin, "A1", models.AgencyStatusSuspended, "unpaid fees")
	require.NoError(t, err)
	assert.Equal(t, "unpaid fees", a.SuspendReason)
	_, err = e.agencies.SetStatus(e.ctx, admin, "A1", "closed", "")
	assert.True(t, services.IsValidation(err))

	err = e.agencies.Delete(e.ctx, admin, "A1")
	assert.True(t, services.IsValidation(err))

	stats, err := e.agencies.Stats(e.ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Agencies[models.AgencyStatusSuspended])
	assert.Equal(t, int64(1), stats.Houses)
	assert.Equal(t, int64(2), stats.TotalUsers)
}

func TestHelpers(t *testing.T) {
	e := newEnv(t)
	owner := e.owner()

	helper, err := e.agencies.AddHelper(e.ctx, owner, services.HelperInput{Name: "Sita", Phone: "9000000003", Password: password})
	require.NoError(t, err)
	assert.Equal(t, models.RoleNameAgencyHelper, helper.Role)
	assert.Equal(t, "A1", helper.AgencyID)

	helperSess := e.login("9000000003")
	_, err = e.agencies.AddHelper(e.ctx, helperSess, services.HelperInput{Name: "x", Phone: "9000000004", Password: password})
	assert.ErrorIs(t, err, services.ErrForbidden)

	// helpers are agency staff
	_, err = e.menus.Lock(e.ctx, helperSess, "A1", today, models.MealLunch)
	require.NoError(t, err)

	list, err := e.agencies.ListHelpers(e.ctx, owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, e.agencies.RemoveHelper(e.ctx, owner, helper.ID))
	_, err = e.auth.Login(e.ctx, "9000000003", password)
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestHouseMembership(t *testing.T) {
	e := newEnv(t)
	owner := e.owner()

	h, err := e.houses.Create(e.ctx, owner, "A1", services.HouseInput{
		Name:            "Blue Nest",
		HouseAdminPhone: "98888-88888",
		MemberPhones:    []string{"9777777777", "9777777777"},
	})
	require.NoError(t, err)
	assert.Equal(t, "9888888888", h.HouseAdminPhone)
	assert.Equal(t, []string{"9888888888", "9777777777"}, h.MemberPhones)

	// a phone can belong to one house only
	_, err = e.houses.AddMember(e.ctx, owner, h.ID, memberPhone)
	assert.True(t, services.IsValidation(err))

	res, err := e.auth.Register(e.ctx, "9888888888", password, "Kiran")
	require.NoError(t, err)
	houseAdmin := e.session(res)

	h, err = e.houses.AddMember(e.ctx, houseAdmin, h.ID, "9666666666")
	require.NoError(t, err)
	assert.Contains(t, h.MemberPhones, "9666666666")

	_, err = e.houses.RemoveMember(e.ctx, houseAdmin, h.ID, "9888888888")
	assert.True(t, services.IsValidation(err))

	_, err = e.houses.AddMember(e.ctx, houseAdmin, e.houseID, "9555555555")
	assert.ErrorIs(t, err, services.ErrForbidden)

	members, err := e.houses.Members(e.ctx, houseAdmin, h.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.True(t, members[0].IsAdmin)
	assert.True(t, members[0].Registered)
	assert.False(t, members[1].Registered)
}

func TestChangeAdminSwapsRoles(t *testing.T) {
	e := newEnv(t)
	adminSess := e.register(adminPhone, "Lakshmi")
	e.register(memberPhone, "Ravi")

	h, err := e.houses.ChangeAdmin(e.ctx, e.owner(), e.houseID, memberPhone)
	require.NoError(t, err)
	assert.Equal(t, memberPhone, h.HouseAdminPhone)

	prev, err := e.store.Users.FindByPhone(e.ctx, adminPhone)
	require.NoError(t, err)
	assert.Equal(t, models.RoleNameCustomer, prev.Role)
	next, err := e.store.Users.FindByPhone(e.ctx, memberPhone)
	require.NoError(t, err)
	assert.Equal(t, models.RoleNameHouseAdmin, next.Role)

	// the former admin's live session follows the published profile
	assert.Eventually(t, func() bool {
		role, ok := adminSess.Role()
		return ok && role == models.Customer
	}, e2eWait, e2eTick)
}
