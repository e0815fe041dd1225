// Package bootstrap seeds the system admin and optional demo agencies from a
// YAML file at startup.
package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/ordering"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Account struct {
	Name     string `yaml:"name"`
	Phone    string `yaml:"phone"`
	Password string `yaml:"password"`
}

type HouseSeed struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	HouseAdminPhone string   `yaml:"house_admin_phone"`
	MemberPhones    []string `yaml:"member_phones"`
	SmallHouseID    string   `yaml:"small_house_id"`
	Address         string   `yaml:"address"`
}

type AgencySeed struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Address       string            `yaml:"address"`
	OwnerName     string            `yaml:"owner_name"`
	OwnerPhone    string            `yaml:"owner_phone"`
	OwnerPassword string            `yaml:"owner_password"`
	CutoffTimes   map[string]string `yaml:"cutoff_times"`
	Houses        []HouseSeed       `yaml:"houses"`
}

type Seed struct {
	SystemAdmin *Account     `yaml:"system_admin"`
	Agencies    []AgencySeed `yaml:"agencies"`
}

// Parse decodes a seed document. Unknown keys are rejected so typos do not
// silently drop data.
func Parse(b []byte) (*Seed, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var s Seed
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &s, nil
}

func LoadFile(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(b)
}

type Seeder struct {
	accounts *services.Accounts
	users    repository.UserRepository
	agencies repository.AgencyRepository
	houses   repository.HouseRepository
	clock    services.Clock
	log      *zap.Logger
}

func NewSeeder(
	accounts *services.Accounts,
	users repository.UserRepository,
	agencies repository.AgencyRepository,
	houses repository.HouseRepository,
	clock services.Clock,
	log *zap.Logger,
) *Seeder {
	if clock == nil {
		clock = services.SystemClock
	}
	return &Seeder{accounts: accounts, users: users, agencies: agencies, houses: houses, clock: clock, log: log}
}

// Run applies the seed file at path. An empty path does nothing.
func (s *Seeder) Run(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	seed, err := LoadFile(path)
	if err != nil {
		return err
	}
	return s.Apply(ctx, seed)
}

// Apply creates missing accounts and upserts agencies and houses by id, so
// running it on every start is safe.
func (s *Seeder) Apply(ctx context.Context, seed *Seed) error {
	if seed.SystemAdmin != nil {
		u, err := s.ensureAccount(ctx, *seed.SystemAdmin, &models.Identity{
			Name: seed.SystemAdmin.Name,
			Role: models.RoleNameSystemAdmin,
		})
		if err != nil {
			return fmt.Errorf("system admin: %w", err)
		}
		s.log.Info("system admin ready", zap.String("user_id", u.ID))
	}
	for _, a := range seed.Agencies {
		if err := s.applyAgency(ctx, a); err != nil {
			return fmt.Errorf("agency %s: %w", a.ID, err)
		}
	}
	return nil
}

// ensureAccount returns the profile registered for acct.Phone, creating the
// credential and profile when there is none.
func (s *Seeder) ensureAccount(ctx context.Context, acct Account, profile *models.Identity) (*models.Identity, error) {
	if !utils.IsValidPhone(acct.Phone) {
		return nil, fmt.Errorf("invalid phone %q", acct.Phone)
	}
	u, err := s.users.FindByPhone(ctx, utils.NormalizePhone(acct.Phone))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	profile.Notifications = models.NotificationSettings{SMS: true}
	return s.accounts.Create(ctx, acct.Phone, acct.Password, profile)
}

func cutoffs(in map[string]string) (map[models.MealType]string, error) {
	out := make(map[models.MealType]string, len(in))
	for k, v := range in {
		mt, err := models.ParseMealType(k)
		if err != nil {
			return nil, err
		}
		c, err := ordering.ParseCutoff(v)
		if err != nil {
			return nil, err
		}
		out[mt] = c.String()
	}
	return out, nil
}

func (s *Seeder) applyAgency(ctx context.Context, in AgencySeed) error {
	if in.ID == "" || in.Name == "" {
		return errors.New("id and name are required")
	}
	times, err := cutoffs(in.CutoffTimes)
	if err != nil {
		return err
	}
	owner, err := s.ensureAccount(ctx, Account{Name: in.OwnerName, Phone: in.OwnerPhone, Password: in.OwnerPassword}, &models.Identity{
		Name:     in.OwnerName,
		Role:     models.RoleNameAgencyOwner,
		AgencyID: in.ID,
	})
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if owner.Role != models.RoleNameAgencyOwner {
		return fmt.Errorf("owner phone %s is registered as %s", owner.Phone, owner.Role)
	}
	if owner.AgencyID != in.ID {
		owner.AgencyID = in.ID
		if err := s.accounts.Save(ctx, owner); err != nil {
			return err
		}
	}

	now := s.clock.Now().UTC()
	a, err := s.agencies.FindByID(ctx, in.ID)
	fresh := errors.Is(err, repository.ErrNotFound)
	switch {
	case fresh:
		a = &models.Agency{
			ID:          in.ID,
			Status:      models.AgencyStatusActive,
			CutoffTimes: map[models.MealType]string{},
			CreatedAt:   now,
		}
	case err != nil:
		return fmt.Errorf("load agency: %w", err)
	}
	a.Name = in.Name
	a.Address = in.Address
	a.OwnerID = owner.ID
	a.OwnerPhone = owner.Phone
	if a.CutoffTimes == nil {
		a.CutoffTimes = map[models.MealType]string{}
	}
	for mt, c := range times {
		a.CutoffTimes[mt] = c
	}
	a.UpdatedAt = now
	if err := s.saveAgency(ctx, a, fresh); err != nil {
		return err
	}

	for _, h := range in.Houses {
		if err := s.applyHouse(ctx, in.ID, h, now); err != nil {
			return fmt.Errorf("house %s: %w", h.ID, err)
		}
	}
	return nil
}

func (s *Seeder) saveAgency(ctx context.Context, a *models.Agency, fresh bool) error {
	if fresh {
		if err := s.agencies.Create(ctx, a); err != nil {
			return fmt.Errorf("create agency: %w", err)
		}
		return nil
	}
	if err := s.agencies.Update(ctx, a); err != nil {
		return fmt.Errorf("update agency: %w", err)
	}
	return nil
}

func (s *Seeder) applyHouse(ctx context.Context, agencyID string, in HouseSeed, now time.Time) error {
	if in.ID == "" || in.Name == "" {
		return errors.New("id and name are required")
	}
	if !utils.IsValidPhone(in.HouseAdminPhone) {
		return fmt.Errorf("invalid house admin phone %q", in.HouseAdminPhone)
	}
	for _, p := range in.MemberPhones {
		if !utils.IsValidPhone(p) {
			return fmt.Errorf("invalid member phone %q", p)
		}
	}
	admin := utils.NormalizePhone(in.HouseAdminPhone)
	members := utils.NormalizePhones(append([]string{admin}, in.MemberPhones...))

	h, err := s.houses.FindByID(ctx, in.ID)
	if errors.Is(err, repository.ErrNotFound) {
		h = &models.House{
			ID:              in.ID,
			AgencyID:        agencyID,
			Name:            in.Name,
			HouseAdminPhone: admin,
			MemberPhones:    members,
			SmallHouseID:    in.SmallHouseID,
			Address:         in.Address,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.houses.Create(ctx, h); err != nil {
			return fmt.Errorf("create house: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load house: %w", err)
	}
	if h.AgencyID != agencyID {
		return fmt.Errorf("house belongs to agency %s", h.AgencyID)
	}
	// Members added through the API since the last start are kept.
	h.Name = in.Name
	h.HouseAdminPhone = admin
	h.MemberPhones = utils.NormalizePhones(append(h.MemberPhones, members...))
	h.SmallHouseID = in.SmallHouseID
	h.Address = in.Address
	h.UpdatedAt = now
	if err := s.houses.Update(ctx, h); err != nil {
		return fmt.Errorf("update house: %w", err)
	}
	return nil
}
