package services

import (
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/session"
)

// caller is the registered identity behind a session.
type caller struct {
	*models.Identity
	role models.Role
}

func callerOf(s *session.Session) (*caller, error) {
	if s == nil || !s.IsRegistered() {
		return nil, ErrNotRegistered
	}
	id := s.Identity()
	role, ok := s.Role()
	if id == nil || !ok {
		return nil, ErrForbidden
	}
	if id.Status == models.UserStatusSuspended {
		return nil, ErrAccountSuspended
	}
	return &caller{Identity: id, role: role}, nil
}

func (c *caller) is(roles ...models.Role) bool {
	for _, r := range roles {
		if c.role == r {
			return true
		}
	}
	return false
}

func (c *caller) require(roles ...models.Role) error {
	if !c.is(roles...) {
		return ErrForbidden
	}
	return nil
}

// staffOf reports whether the caller works for agencyID.
func (c *caller) staffOf(agencyID string) bool {
	return models.IsAgencyStaff(c.role) && c.AgencyID != "" && c.AgencyID == agencyID
}

// canManageAgency allows agency staff of agencyID and system admins.
func (c *caller) canManageAgency(agencyID string) error {
	if c.role == models.SystemAdmin || c.staffOf(agencyID) {
		return nil
	}
	return ErrForbidden
}

func (c *caller) memberOf(houseID string) bool {
	return models.IsHouseMember(c.role) && c.HouseID != "" && c.HouseID == houseID
}

// canViewHouse allows the house's members, its agency's staff and system
// admins.
func (c *caller) canViewHouse(h *models.House) error {
	if c.role == models.SystemAdmin || c.memberOf(h.ID) || c.staffOf(h.AgencyID) {
		return nil
	}
	return ErrForbidden
}

// canAdminHouse allows the house admin of h and its agency's staff.
func (c *caller) canAdminHouse(h *models.House) error {
	if c.role == models.SystemAdmin || c.staffOf(h.AgencyID) {
		return nil
	}
	if c.role == models.HouseAdmin && c.HouseID == h.ID {
		return nil
	}
	return ErrForbidden
}
