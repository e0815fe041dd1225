package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
)

type CatalogRepo struct {
	mu   sync.RWMutex
	rows map[string]models.CatalogItem
}

func (r *CatalogRepo) Create(_ context.Context, it *models.CatalogItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[it.ID]; ok {
		return repository.ErrDuplicate
	}
	it.CreatedAt = now()
	it.UpdatedAt = it.CreatedAt
	r.rows[it.ID] = *it
	return nil
}

func (r *CatalogRepo) Update(_ context.Context, it *models.CatalogItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[it.ID]
	if !ok || x.AgencyID != it.AgencyID {
		return repository.ErrNotFound
	}
	it.UpdatedAt = now()
	r.rows[it.ID] = *it
	return nil
}

func (r *CatalogRepo) Delete(_ context.Context, agencyID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[id]
	if !ok || x.AgencyID != agencyID {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *CatalogRepo) FindByID(_ context.Context, agencyID, id string) (*models.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	x, ok := r.rows[id]
	if !ok || x.AgencyID != agencyID {
		return nil, repository.ErrNotFound
	}
	return &x, nil
}

func (r *CatalogRepo) ListByAgency(_ context.Context, agencyID string) ([]*models.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.CatalogItem, 0)
	for _, x := range r.rows {
		if x.AgencyID == agencyID {
			x := x
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type MenuRepo struct {
	mu   sync.RWMutex
	rows map[string]models.DailyMenu
}

func cloneMenu(m models.DailyMenu) models.DailyMenu {
	meals := make(map[models.MealType]models.MealMenu, len(m.Meals))
	for k, v := range m.Meals {
		v.Items = append([]models.MenuEntry(nil), v.Items...)
		meals[k] = v
	}
	m.Meals = meals
	return m
}

func (r *MenuRepo) Get(_ context.Context, agencyID, date string) (*models.DailyMenu, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	x, ok := r.rows[models.DailyMenuID(agencyID, date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	x = cloneMenu(x)
	return &x, nil
}

func (r *MenuRepo) Save(_ context.Context, m *models.DailyMenu) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = models.DailyMenuID(m.AgencyID, m.Date)
	m.UpdatedAt = now()
	r.rows[m.ID] = cloneMenu(*m)
	return nil
}

func (r *MenuRepo) ListRange(_ context.Context, agencyID, from, to string) ([]*models.DailyMenu, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.DailyMenu, 0)
	for _, x := range r.rows {
		if x.AgencyID == agencyID && x.Date >= from && x.Date <= to {
			x = cloneMenu(x)
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
