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

type AgencyInput struct {
	Name          string
	Address       string
	OwnerName     string
	OwnerPhone    string
	OwnerPassword string
}

type AgencyUpdate struct {
	Name    *string
	Address *string
}

type HelperInput struct {
	Name     string
	Phone    string
	Password string
}

// SystemStats is the platform-wide summary shown to system admins.
type SystemStats struct {
	Agencies      map[models.AgencyStatus]int64 `json:"agencies"`
	Houses        int64                         `json:"houses"`
	UsersByRole   map[models.RoleName]int64     `json:"usersByRole"`
	TotalUsers    int64                         `json:"totalUsers"`
	TotalAgencies int64                         `json:"totalAgencies"`
}

type AgencyService struct {
	accounts *Accounts
	agencies repository.AgencyRepository
	houses   repository.HouseRepository
	users    repository.UserRepository
	log      *zap.Logger
}

func NewAgencyService(
	accounts *Accounts,
	agencies repository.AgencyRepository,
	houses repository.HouseRepository,
	users repository.UserRepository,
	log *zap.Logger,
) *AgencyService {
	return &AgencyService{accounts: accounts, agencies: agencies, houses: houses, users: users, log: log}
}

// Create registers an agency together with its owner account. If the agency
// document cannot be written the owner account is removed again.
func (s *AgencyService) Create(ctx context.Context, sess *session.Session, in AgencyInput) (*models.Agency, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.require(models.SystemAdmin); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("agency name is required")
	}

	agencyID := utils.NewID()
	owner, err := s.accounts.Create(ctx, in.OwnerPhone, in.OwnerPassword, &models.Identity{
		Name:          in.OwnerName,
		Role:          models.RoleNameAgencyOwner,
		AgencyID:      agencyID,
		Notifications: models.NotificationSettings{SMS: true},
	})
	if err != nil {
		return nil, err
	}

	a := &models.Agency{
		ID:          agencyID,
		Name:        strings.TrimSpace(in.Name),
		OwnerID:     owner.ID,
		OwnerPhone:  owner.Phone,
		Address:     in.Address,
		Status:      models.AgencyStatusActive,
		CutoffTimes: map[models.MealType]string{},
	}
	if err := s.agencies.Create(ctx, a); err != nil {
		if rmErr := s.accounts.Remove(context.WithoutCancel(ctx), owner.ID); rmErr != nil {
			s.log.Error("failed to remove owner after agency write failure", zap.String("user_id", owner.ID), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("create agency: %w", err)
	}
	return a, nil
}

func (s *AgencyService) List(ctx context.Context, sess *session.Session, status models.AgencyStatus) ([]*models.Agency, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.require(models.SystemAdmin); err != nil {
		return nil, err
	}
	return s.agencies.List(ctx, status)
}

func (s *AgencyService) Get(ctx context.Context, sess *session.Session, id string) (*models.Agency, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.canManageAgency(id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *AgencyService) load(ctx context.Context, id string) (*models.Agency, error) {
	a, err := s.agencies.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load agency: %w", err)
	}
	return a, nil
}

func (s *AgencyService) Update(ctx context.Context, sess *session.Session, id string, in AgencyUpdate) (*models.Agency, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if c.role != models.SystemAdmin && !(c.role == models.AgencyOwner && c.AgencyID == id) {
		return nil, ErrForbidden
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, invalid("agency name is required")
		}
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Address != nil {
		a.Address = *in.Address
	}
	if err := s.agencies.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update agency: %w", err)
	}
	return a, nil
}

// SetStatus moves an agency between pending, active and suspended.
func (s *AgencyService) SetStatus(ctx context.Context, sess *session.Session, id string, status models.AgencyStatus, reason string) (*models.Agency, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.require(models.SystemAdmin); err != nil {
		return nil, err
	}
	switch status {
	case models.AgencyStatusPending, models.AgencyStatusActive, models.AgencyStatusSuspended:
	default:
		return nil, invalid("unknown agency status " + string(status))
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = status
	a.SuspendReason = ""
	if status == models.AgencyStatusSuspended {
		a.SuspendReason = reason
	}
	if err := s.agencies.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update agency: %w", err)
	}
	return a, nil
}

// Delete removes an agency that no longer has houses.
func (s *AgencyService) Delete(ctx context.Context, sess *session.Session, id string) error {
	c, err := callerOf(sess)
	if err != nil {
		return err
	}
	if err := c.require(models.SystemAdmin); err != nil {
		return err
	}
	houses, err := s.houses.ListByAgency(ctx, id)
	if err != nil {
		return fmt.Errorf("list houses: %w", err)
	}
	if len(houses) > 0 {
		return invalid("remove the agency's houses first")
	}
	if err := s.agencies.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete agency: %w", err)
	}
	return nil
}

// Stats summarizes agencies, houses and users.
func (s *AgencyService) Stats(ctx context.Context, sess *session.Session) (*SystemStats, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.require(models.SystemAdmin); err != nil {
		return nil, err
	}
	return s.stats(ctx)
}

func (s *AgencyService) stats(ctx context.Context) (*SystemStats, error) {
	agencies, err := s.agencies.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	st := &SystemStats{Agencies: map[models.AgencyStatus]int64{}}
	for _, a := range agencies {
		st.Agencies[a.Status]++
	}
	st.TotalAgencies = int64(len(agencies))
	if st.Houses, err = s.houses.Count(ctx); err != nil {
		return nil, fmt.Errorf("count houses: %w", err)
	}
	if st.UsersByRole, err = s.users.CountByRole(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	for _, n := range st.UsersByRole {
		st.TotalUsers += n
	}
	return st, nil
}

// AddHelper creates a helper account in the owner's agency.
func (s *AgencyService) AddHelper(ctx context.Context, sess *session.Session, in HelperInput) (*models.Identity, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.require(models.AgencyOwner); err != nil {
		return nil, err
	}
	if c.AgencyID == "" {
		return nil, ErrForbidden
	}
	return s.accounts.Create(ctx, in.Phone, in.Password, &models.Identity{
		Name:     in.Name,
		Role:     models.RoleNameAgencyHelper,
		AgencyID: c.AgencyID,
	})
}

func (s *AgencyService) ListHelpers(ctx context.Context, sess *session.Session) ([]*models.Identity, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.require(models.AgencyOwner); err != nil {
		return nil, err
	}
	return s.users.ListByAgency(ctx, c.AgencyID, models.RoleNameAgencyHelper)
}

// RemoveHelper deletes the helper's credential and suspends the profile.
func (s *AgencyService) RemoveHelper(ctx context.Context, sess *session.Session, userID string) error {
	c, err := callerOf(sess)
	if err != nil {
		return err
	}
	if err := c.require(models.AgencyOwner); err != nil {
		return err
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load helper: %w", err)
	}
	if u.Role != models.RoleNameAgencyHelper || u.AgencyID != c.AgencyID {
		return ErrNotFound
	}
	return s.accounts.Remove(ctx, userID)
}
