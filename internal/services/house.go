package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/utils"
	"go.uber.org/zap"
)

type HouseInput struct {
	Name            string
	HouseAdminPhone string
	MemberPhones    []string
	SmallHouseID    string
	Address         string
}

type HouseUpdate struct {
	Name         *string
	SmallHouseID *string
	Address      *string
}

// Member is one phone on a house, with the profile registered for it if any.
type Member struct {
	Phone      string           `json:"phone"`
	IsAdmin    bool             `json:"isAdmin"`
	Registered bool             `json:"registered"`
	User       *models.Identity `json:"user,omitempty"`
}

type HouseService struct {
	accounts *Accounts
	houses   repository.HouseRepository
	users    repository.UserRepository
	log      *zap.Logger
}

func NewHouseService(accounts *Accounts, houses repository.HouseRepository, users repository.UserRepository, log *zap.Logger) *HouseService {
	return &HouseService{accounts: accounts, houses: houses, users: users, log: log}
}

func (s *HouseService) load(ctx context.Context, id string) (*models.House, error) {
	h, err := s.houses.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load house: %w", err)
	}
	return h, nil
}

// claimable rejects a phone already listed on a different house.
func (s *HouseService) claimable(ctx context.Context, phone, houseID string) error {
	for _, find := range []func(context.Context, string) (*models.House, error){s.houses.FindByMemberPhone, s.houses.FindByAdminPhone} {
		h, err := find(ctx, phone)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("lookup phone: %w", err)
		}
		if h.ID != houseID {
			return invalid(fmt.Sprintf("%s already belongs to %s", phone, h.Name))
		}
	}
	return nil
}

func normalizeValid(phones []string) ([]string, error) {
	for _, p := range phones {
		if !utils.IsValidPhone(p) {
			return nil, invalid("invalid phone number " + p)
		}
	}
	return utils.NormalizePhones(phones), nil
}

// Create adds a house to an agency. The admin phone is also kept in the
// member list.
func (s *HouseService) Create(ctx context.Context, sess *session.Session, agencyID string, in HouseInput) (*models.House, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.canManageAgency(agencyID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("house name is required")
	}
	if !utils.IsValidPhone(in.HouseAdminPhone) {
		return nil, invalid("invalid house admin phone")
	}
	admin := utils.NormalizePhone(in.HouseAdminPhone)
	members, err := normalizeValid(append([]string{admin}, in.MemberPhones...))
	if err != nil {
		return nil, err
	}

	h := &models.House{
		ID:              utils.NewID(),
		AgencyID:        agencyID,
		Name:            strings.TrimSpace(in.Name),
		HouseAdminPhone: admin,
		MemberPhones:    members,
		SmallHouseID:    in.SmallHouseID,
		Address:         in.Address,
	}
	for _, p := range members {
		if err := s.claimable(ctx, p, h.ID); err != nil {
			return nil, err
		}
	}
	if err := s.houses.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("create house: %w", err)
	}
	return h, nil
}

func (s *HouseService) Get(ctx context.Context, sess *session.Session, id string) (*models.House, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.canViewHouse(h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HouseService) ListByAgency(ctx context.Context, sess *session.Session, agencyID string) ([]*models.House, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.canManageAgency(agencyID); err != nil {
		return nil, err
	}
	return s.houses.ListByAgency(ctx, agencyID)
}

func (s *HouseService) Update(ctx context.Context, sess *session.Session, id string, in HouseUpdate) (*models.House, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.canManageAgency(h.AgencyID); err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, invalid("house name is required")
		}
		h.Name = strings.TrimSpace(*in.Name)
	}
	if in.SmallHouseID != nil {
		h.SmallHouseID = *in.SmallHouseID
	}
	if in.Address != nil {
		h.Address = *in.Address
	}
	if err := s.houses.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("update house: %w", err)
	}
	return h, nil
}

func (s *HouseService) Delete(ctx context.Context, sess *session.Session, id string) error {
	c, err := callerOf(sess)
	if err != nil {
		return err
	}
	h, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := c.canManageAgency(h.AgencyID); err != nil {
		return err
	}
	return s.houses.Delete(ctx, id)
}

// AddMember lists a phone on the house so its owner can register.
func (s *HouseService) AddMember(ctx context.Context, sess *session.Session, houseID, phone string) (*models.House, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.load(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if err := c.canAdminHouse(h); err != nil {
		return nil, err
	}
	if !utils.IsValidPhone(phone) {
		return nil, invalid("invalid phone number")
	}
	phone = utils.NormalizePhone(phone)
	if h.HasMember(phone) {
		return h, nil
	}
	if err := s.claimable(ctx, phone, h.ID); err != nil {
		return nil, err
	}
	h.MemberPhones = append(h.MemberPhones, phone)
	if err := s.houses.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("update house: %w", err)
	}
	return h, nil
}

// RemoveMember unlists a phone. The house admin's phone cannot be removed.
func (s *HouseService) RemoveMember(ctx context.Context, sess *session.Session, houseID, phone string) (*models.House, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.load(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if err := c.canAdminHouse(h); err != nil {
		return nil, err
	}
	phone = utils.NormalizePhone(phone)
	if phone == h.HouseAdminPhone {
		return nil, invalid("change the house admin before removing this phone")
	}
	kept := h.MemberPhones[:0]
	for _, p := range h.MemberPhones {
		if p != phone {
			kept = append(kept, p)
		}
	}
	h.MemberPhones = kept
	if err := s.houses.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("update house: %w", err)
	}
	return h, nil
}

// ChangeAdmin hands the house admin role to another member. Registered
// profiles of both phones swap roles and are republished.
func (s *HouseService) ChangeAdmin(ctx context.Context, sess *session.Session, houseID, phone string) (*models.House, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.load(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if err := c.canManageAgency(h.AgencyID); err != nil {
		return nil, err
	}
	if !utils.IsValidPhone(phone) {
		return nil, invalid("invalid phone number")
	}
	phone = utils.NormalizePhone(phone)
	if phone == h.HouseAdminPhone {
		return h, nil
	}
	if !h.HasMember(phone) {
		if err := s.claimable(ctx, phone, h.ID); err != nil {
			return nil, err
		}
		h.MemberPhones = append(h.MemberPhones, phone)
	}
	previous := h.HouseAdminPhone
	h.HouseAdminPhone = phone
	if err := s.houses.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("update house: %w", err)
	}

	if err := s.setRole(ctx, previous, h.ID, models.RoleNameCustomer); err != nil {
		return nil, err
	}
	if err := s.setRole(ctx, phone, h.ID, models.RoleNameHouseAdmin); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HouseService) setRole(ctx context.Context, phone, houseID string, role models.RoleName) error {
	if phone == "" {
		return nil
	}
	u, err := s.users.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if u.HouseID != houseID || u.Role == role {
		return nil
	}
	u.Role = role
	return s.accounts.Save(ctx, u)
}

// Members lists the house's phones with their registration state.
func (s *HouseService) Members(ctx context.Context, sess *session.Session, houseID string) ([]Member, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.load(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if err := c.canViewHouse(h); err != nil {
		return nil, err
	}
	users, err := s.users.ListByHouse(ctx, houseID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	byPhone := make(map[string]*models.Identity, len(users))
	for _, u := range users {
		byPhone[u.Phone] = u
	}

	out := make([]Member, 0, len(h.MemberPhones))
	for _, p := range h.MemberPhones {
		u := byPhone[p]
		out = append(out, Member{Phone: p, IsAdmin: p == h.HouseAdminPhone, Registered: u != nil, User: u})
	}
	return out, nil
}
