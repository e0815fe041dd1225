package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository/memory"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const seedYAML = `
system_admin:
  name: Root
  phone: "9000000000"
  password: rootpass
agencies:
  - id: A1
    name: Amma's Kitchen
    owner_name: Owner
    owner_phone: "9000000001"
    owner_password: ownerpass
    cutoff_times:
      lunch: "11:00"
      dinner: "19:30"
    houses:
      - id: H1
        name: Green Villa
        house_admin_phone: "98765 43210"
        member_phones: ["9123456780"]
`

func newSeeder(t *testing.T) (*Seeder, *memory.Store) {
	t.Helper()
	store := memory.New()
	clock := services.ClockFunc(func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) })
	accounts := services.NewAccounts(store.Credentials, store.Users, session.NewMemoryFeed(), "moms.app", bcrypt.MinCost, 6, clock, zap.NewNop())
	return NewSeeder(accounts, store.Users, store.Agencies, store.Houses, clock, zap.NewNop()), store
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("system_admin:\n  name: x\n  phone_number: \"1\"\n"))
	require.Error(t, err)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, store := newSeeder(t)
	seed, err := Parse([]byte(seedYAML))
	require.NoError(t, err)

	require.NoError(t, s.Apply(ctx, seed))
	require.NoError(t, s.Apply(ctx, seed))

	admin, err := store.Users.FindByPhone(ctx, "9000000000")
	require.NoError(t, err)
	assert.Equal(t, models.RoleNameSystemAdmin, admin.Role)

	owner, err := store.Users.FindByPhone(ctx, "9000000001")
	require.NoError(t, err)
	assert.Equal(t, "A1", owner.AgencyID)

	a, err := store.Agencies.FindByID(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, a.OwnerID)
	assert.Equal(t, models.AgencyStatusActive, a.Status)
	assert.Equal(t, "19:30", a.CutoffTimes[models.MealDinner])

	h, err := store.Houses.FindByID(ctx, "H1")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", h.HouseAdminPhone)
	assert.ElementsMatch(t, []string{"9876543210", "9123456780"}, h.MemberPhones)

	roles, err := store.Users.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), roles[models.RoleNameSystemAdmin])
	assert.Equal(t, int64(1), roles[models.RoleNameAgencyOwner])
}

func TestApplyKeepsMembersAddedLater(t *testing.T) {
	ctx := context.Background()
	s, store := newSeeder(t)
	seed, err := Parse([]byte(seedYAML))
	require.NoError(t, err)
	require.NoError(t, s.Apply(ctx, seed))

	h, err := store.Houses.FindByID(ctx, "H1")
	require.NoError(t, err)
	h.MemberPhones = append(h.MemberPhones, "9111111111")
	require.NoError(t, store.Houses.Update(ctx, h))

	require.NoError(t, s.Apply(ctx, seed))
	h, err = store.Houses.FindByID(ctx, "H1")
	require.NoError(t, err)
	assert.Contains(t, h.MemberPhones, "9111111111")
}

func TestApplyRejectsBadCutoff(t *testing.T) {
	s, _ := newSeeder(t)
	err := s.Apply(context.Background(), &Seed{Agencies: []AgencySeed{{
		ID:            "A2",
		Name:          "Late Kitchen",
		OwnerPhone:    "9000000002",
		OwnerPassword: "ownerpass",
		CutoffTimes:   map[string]string{"lunch": "25:00"},
	}}})
	require.Error(t, err)
}
