package services_test

import (
	"testing"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardPerRole(t *testing.T) {
	e, _ := billedHouse(t)

	t.Run("agency owner", func(t *testing.T) {
		d, err := e.dash.Get(e.ctx, e.owner())
		require.NoError(t, err)
		assert.Equal(t, models.DashboardAgency, d.Kind)
		s := d.Summary.(*services.AgencySummary)
		assert.Equal(t, today, s.Date)
		assert.Equal(t, map[models.MealType]int{models.MealLunch: 2, models.MealDinner: 1}, s.OrdersByMeal)
		assert.Equal(t, 150.0, s.Outstanding)
		assert.Equal(t, 1, s.Houses)
		assert.Zero(t, s.PendingPayments)
	})

	t.Run("house admin", func(t *testing.T) {
		d, err := e.dash.Get(e.ctx, e.login(adminPhone))
		require.NoError(t, err)
		assert.Equal(t, models.DashboardHouseAdmin, d.Kind)
		s := d.Summary.(*services.HouseAdminSummary)
		assert.Equal(t, "Green Villa", s.HouseName)
		assert.Equal(t, 2, s.Members)
		assert.Equal(t, 2, s.Registered)
		assert.Equal(t, 1, s.UnpaidBills)
		assert.Equal(t, 150.0, s.AmountDue)
	})

	t.Run("customer", func(t *testing.T) {
		d, err := e.dash.Get(e.ctx, e.login(memberPhone))
		require.NoError(t, err)
		assert.Equal(t, models.DashboardCustomer, d.Kind)
		assert.Equal(t, models.RoleNameCustomer, d.Role)
		s := d.Summary.(*services.CustomerSummary)
		require.NotNil(t, s.Today)
		assert.Equal(t, today, s.Today.Date)
		assert.Len(t, s.RecentOrders, 2)
		assert.Equal(t, 150.0, s.AmountDue)
	})

	t.Run("system admin", func(t *testing.T) {
		d, err := e.dash.Get(e.ctx, e.sysadmin())
		require.NoError(t, err)
		assert.Equal(t, models.DashboardSystemAdmin, d.Kind)
		s := d.Summary.(*services.SystemStats)
		assert.EqualValues(t, 1, s.TotalAgencies)
		assert.EqualValues(t, 1, s.Houses)
	})
}
