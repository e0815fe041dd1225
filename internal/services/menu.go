package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/ordering"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/utils"
	"go.uber.org/zap"
)

type CatalogInput struct {
	Name        string
	Description string
	Price       float64
	Category    models.MenuCategory
}

type CatalogUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *models.MenuCategory
}

// DailyMenuView is a day's menu with the agency's cutoffs and the derived
// per-meal availability.
type DailyMenuView struct {
	AgencyID    string                              `json:"agencyId"`
	Date        string                              `json:"date"`
	Meals       map[models.MealType]models.MealMenu `json:"meals"`
	CutoffTimes map[models.MealType]string          `json:"cutoffTimes"`
	Available   []ordering.MealAvailability         `json:"available"`
	UpdatedAt   time.Time                           `json:"updatedAt"`
}

type MenuService struct {
	catalog  repository.CatalogRepository
	menus    repository.MenuRepository
	agencies repository.AgencyRepository
	clock    Clock
	loc      *time.Location
	log      *zap.Logger

	// writes serializes read-modify-write cycles on daily menus.
	writes sync.Mutex
}

func NewMenuService(
	catalog repository.CatalogRepository,
	menus repository.MenuRepository,
	agencies repository.AgencyRepository,
	clock Clock,
	loc *time.Location,
	log *zap.Logger,
) *MenuService {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MenuService{catalog: catalog, menus: menus, agencies: agencies, clock: clock, loc: loc, log: log}
}

func (s *MenuService) now() time.Time { return s.clock.Now().In(s.loc) }

// Today is the current date in the service timezone.
func (s *MenuService) Today() string { return utils.DateOf(s.clock.Now(), s.loc) }

func validCategory(c models.MenuCategory) bool {
	switch c {
	case models.CategoryMain, models.CategorySide, models.CategoryBread, models.CategoryRice,
		models.CategoryDessert, models.CategoryBeverage, models.CategorySnack:
		return true
	}
	return false
}

// staffAgency returns the agency an agency-staff caller works for.
func staffAgency(c *caller) (string, error) {
	if !models.IsAgencyStaff(c.role) || c.AgencyID == "" {
		return "", ErrForbidden
	}
	return c.AgencyID, nil
}

func (s *MenuService) CreateItem(ctx context.Context, sess *session.Session, agencyID string, in CatalogInput) (*models.CatalogItem, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if !c.staffOf(agencyID) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("item name is required")
	}
	if in.Price < 0 {
		return nil, invalid("price cannot be negative")
	}
	if !validCategory(in.Category) {
		return nil, invalid("unknown category " + string(in.Category))
	}
	it := &models.CatalogItem{
		ID:          utils.NewID(),
		AgencyID:    agencyID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
	}
	if err := s.catalog.Create(ctx, it); err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}
	return it, nil
}

func (s *MenuService) loadItem(ctx context.Context, agencyID, id string) (*models.CatalogItem, error) {
	it, err := s.catalog.FindByID(ctx, agencyID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load menu item: %w", err)
	}
	return it, nil
}

// UpdateItem edits a catalog item. Menus already published keep the snapshot
// they were published with.
func (s *MenuService) UpdateItem(ctx context.Context, sess *session.Session, itemID string, in CatalogUpdate) (*models.CatalogItem, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	agencyID, err := staffAgency(c)
	if err != nil {
		return nil, err
	}
	it, err := s.loadItem(ctx, agencyID, itemID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, invalid("item name is required")
		}
		it.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		it.Description = *in.Description
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, invalid("price cannot be negative")
		}
		it.Price = *in.Price
	}
	if in.Category != nil {
		if !validCategory(*in.Category) {
			return nil, invalid("unknown category " + string(*in.Category))
		}
		it.Category = *in.Category
	}
	if err := s.catalog.Update(ctx, it); err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}
	return it, nil
}

func (s *MenuService) DeleteItem(ctx context.Context, sess *session.Session, itemID string) error {
	c, err := callerOf(sess)
	if err != nil {
		return err
	}
	agencyID, err := staffAgency(c)
	if err != nil {
		return err
	}
	if err := s.catalog.Delete(ctx, agencyID, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete menu item: %w", err)
	}
	return nil
}

// ListItems returns the agency's catalog to its staff and to its houses.
func (s *MenuService) ListItems(ctx context.Context, sess *session.Session, agencyID string) ([]*models.CatalogItem, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if c.role != models.SystemAdmin && c.AgencyID != agencyID {
		return nil, ErrForbidden
	}
	return s.catalog.ListByAgency(ctx, agencyID)
}

// menu returns the stored daily menu, or an empty one.
func (s *MenuService) menu(ctx context.Context, agencyID, date string) (*models.DailyMenu, error) {
	m, err := s.menus.Get(ctx, agencyID, date)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.DailyMenu{
			ID:       models.DailyMenuID(agencyID, date),
			AgencyID: agencyID,
			Date:     date,
			Meals:    map[models.MealType]models.MealMenu{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load daily menu: %w", err)
	}
	if m.Meals == nil {
		m.Meals = map[models.MealType]models.MealMenu{}
	}
	return m, nil
}

func (s *MenuService) cutoffs(ctx context.Context, agencyID string) (map[models.MealType]string, error) {
	a, err := s.agencies.FindByID(ctx, agencyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load agency: %w", err)
	}
	if a.CutoffTimes == nil {
		return map[models.MealType]string{}, nil
	}
	return a.CutoffTimes, nil
}

func (s *MenuService) view(ctx context.Context, agencyID, date string) (*DailyMenuView, error) {
	m, err := s.menu(ctx, agencyID, date)
	if err != nil {
		return nil, err
	}
	cutoffs, err := s.cutoffs(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	return &DailyMenuView{
		AgencyID:    agencyID,
		Date:        date,
		Meals:       m.Meals,
		CutoffTimes: cutoffs,
		Available:   ordering.Availability(m, cutoffs, s.now()),
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

// GetDaily returns a day's menu to the agency's staff and houses.
func (s *MenuService) GetDaily(ctx context.Context, sess *session.Session, agencyID, date string) (*DailyMenuView, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if c.role != models.SystemAdmin && c.AgencyID != agencyID {
		return nil, ErrForbidden
	}
	return s.view(ctx, agencyID, date)
}

// TodayFor lists today's orderable state for the caller's agency.
func (s *MenuService) TodayFor(ctx context.Context, sess *session.Session) (*DailyMenuView, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if c.AgencyID == "" {
		return nil, invalid("your account is not linked to an agency")
	}
	return s.view(ctx, c.AgencyID, s.Today())
}

// Evaluate reports the availability of one meal for ordering.
func (s *MenuService) Evaluate(ctx context.Context, agencyID, date string, mt models.MealType) (ordering.MealAvailability, error) {
	m, err := s.menu(ctx, agencyID, date)
	if err != nil {
		return ordering.MealAvailability{}, err
	}
	cutoffs, err := s.cutoffs(ctx, agencyID)
	if err != nil {
		return ordering.MealAvailability{}, err
	}
	return ordering.Evaluate(m, mt, cutoffs, s.now()), nil
}

func (s *MenuService) mutate(ctx context.Context, sess *session.Session, agencyID, date string, mt models.MealType, fn func(c *caller, meal *models.MealMenu) error) (*models.DailyMenu, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if !c.staffOf(agencyID) {
		return nil, ErrForbidden
	}
	if _, err := utils.ParseDate(date, s.loc); err != nil {
		return nil, invalid("date must be YYYY-MM-DD")
	}
	if _, err := models.ParseMealType(string(mt)); err != nil {
		return nil, invalid(err.Error())
	}

	s.writes.Lock()
	defer s.writes.Unlock()

	m, err := s.menu(ctx, agencyID, date)
	if err != nil {
		return nil, err
	}
	meal := m.Meals[mt]
	if err := fn(c, &meal); err != nil {
		return nil, err
	}
	m.Meals[mt] = meal
	if err := s.menus.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save daily menu: %w", err)
	}
	return m, nil
}

// Publish replaces a meal's item list. Ids are deduplicated and resolved
// from the agency catalog.
func (s *MenuService) Publish(ctx context.Context, sess *session.Session, agencyID, date string, mt models.MealType, itemIDs []string) (*models.DailyMenu, error) {
	return s.mutate(ctx, sess, agencyID, date, mt, func(_ *caller, meal *models.MealMenu) error {
		seen := make(map[string]bool, len(itemIDs))
		items := make([]models.MenuEntry, 0, len(itemIDs))
		for _, id := range itemIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			it, err := s.catalog.FindByID(ctx, agencyID, id)
			if errors.Is(err, repository.ErrNotFound) {
				return invalid("unknown menu item " + id)
			}
			if err != nil {
				return fmt.Errorf("load menu item: %w", err)
			}
			items = append(items, models.EntryFromCatalog(it))
		}
		meal.Items = items
		return nil
	})
}

// ToggleItem adds the item to the meal, or removes it if present.
func (s *MenuService) ToggleItem(ctx context.Context, sess *session.Session, agencyID, date string, mt models.MealType, itemID string) (*models.DailyMenu, error) {
	return s.mutate(ctx, sess, agencyID, date, mt, func(_ *caller, meal *models.MealMenu) error {
		for i, e := range meal.Items {
			if e.ID == itemID {
				meal.Items = append(meal.Items[:i:i], meal.Items[i+1:]...)
				return nil
			}
		}
		it, err := s.catalog.FindByID(ctx, agencyID, itemID)
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("unknown menu item " + itemID)
		}
		if err != nil {
			return fmt.Errorf("load menu item: %w", err)
		}
		meal.Items = append(meal.Items, models.EntryFromCatalog(it))
		return nil
	})
}

func (s *MenuService) Lock(ctx context.Context, sess *session.Session, agencyID, date string, mt models.MealType) (*models.DailyMenu, error) {
	return s.mutate(ctx, sess, agencyID, date, mt, func(c *caller, meal *models.MealMenu) error {
		meal.Locked = true
		meal.LockedBy = c.ID
		return nil
	})
}

func (s *MenuService) Unlock(ctx context.Context, sess *session.Session, agencyID, date string, mt models.MealType) (*models.DailyMenu, error) {
	return s.mutate(ctx, sess, agencyID, date, mt, func(_ *caller, meal *models.MealMenu) error {
		meal.Locked = false
		meal.LockedBy = ""
		return nil
	})
}

// UpdateCutoff sets the agency's cutoff for a meal. An empty cutoff removes
// it.
func (s *MenuService) UpdateCutoff(ctx context.Context, sess *session.Session, agencyID string, mt models.MealType, cutoff string) (*models.Agency, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if !c.staffOf(agencyID) {
		return nil, ErrForbidden
	}
	if _, err := models.ParseMealType(string(mt)); err != nil {
		return nil, invalid(err.Error())
	}
	if cutoff != "" {
		parsed, err := ordering.ParseCutoff(cutoff)
		if err != nil {
			return nil, invalid(err.Error())
		}
		cutoff = parsed.String()
	}

	a, err := s.agencies.FindByID(ctx, agencyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load agency: %w", err)
	}
	if a.CutoffTimes == nil {
		a.CutoffTimes = map[models.MealType]string{}
	}
	if cutoff == "" {
		delete(a.CutoffTimes, mt)
	} else {
		a.CutoffTimes[mt] = cutoff
	}
	if err := s.agencies.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update agency: %w", err)
	}
	return a, nil
}
