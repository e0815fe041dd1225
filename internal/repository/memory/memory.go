// Package memory implements the repository interfaces over process memory.
// It backs tests and single-node demo runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
)

type Store struct {
	Credentials   *CredentialRepo
	Users         *UserRepo
	Houses        *HouseRepo
	Agencies      *AgencyRepo
	Catalog       *CatalogRepo
	Menus         *MenuRepo
	Orders        *OrderRepo
	Requests      *RequestRepo
	Bills         *BillRepo
	Payments      *PaymentRepo
	Chat          *ChatRepo
	Notifications *NotificationRepo
}

func New() *Store {
	return &Store{
		Credentials:   &CredentialRepo{rows: map[string]models.Credential{}},
		Users:         &UserRepo{rows: map[string]models.Identity{}},
		Houses:        &HouseRepo{rows: map[string]models.House{}},
		Agencies:      &AgencyRepo{rows: map[string]models.Agency{}},
		Catalog:       &CatalogRepo{rows: map[string]models.CatalogItem{}},
		Menus:         &MenuRepo{rows: map[string]models.DailyMenu{}},
		Orders:        &OrderRepo{rows: map[string]models.Order{}},
		Requests:      &RequestRepo{rows: map[string]models.ManualRequest{}},
		Bills:         &BillRepo{rows: map[string]models.Bill{}},
		Payments:      &PaymentRepo{rows: map[string]models.Payment{}},
		Chat:          &ChatRepo{},
		Notifications: &NotificationRepo{rows: map[string]models.Notification{}},
	}
}

func now() time.Time { return time.Now().UTC() }

type CredentialRepo struct {
	mu   sync.RWMutex
	rows map[string]models.Credential
}

func (r *CredentialRepo) Create(_ context.Context, c *models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.rows {
		if x.Identifier == c.Identifier {
			return repository.ErrDuplicate
		}
	}
	if _, ok := r.rows[c.ID]; ok {
		return repository.ErrDuplicate
	}
	c.CreatedAt = now()
	r.rows[c.ID] = *c
	return nil
}

func (r *CredentialRepo) FindByIdentifier(_ context.Context, identifier string) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, x := range r.rows {
		if x.Identifier == identifier {
			return &x, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *CredentialRepo) FindByID(_ context.Context, id string) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if x, ok := r.rows[id]; ok {
		return &x, nil
	}
	return nil, repository.ErrNotFound
}

func (r *CredentialRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	x.PasswordHash = hash
	r.rows[id] = x
	return nil
}

func (r *CredentialRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *CredentialRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

type UserRepo struct {
	mu   sync.RWMutex
	rows map[string]models.Identity
	// SaveErr, when set, is returned by Save.
	SaveErr error
}

func (r *UserRepo) Save(_ context.Context, u *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	for id, x := range r.rows {
		if id != u.ID && u.Phone != "" && x.Phone == u.Phone {
			return repository.ErrDuplicate
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	u.UpdatedAt = now()
	r.rows[u.ID] = *u
	return nil
}

func (r *UserRepo) FindByID(_ context.Context, id string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if x, ok := r.rows[id]; ok {
		return &x, nil
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) FindByPhone(_ context.Context, phone string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, x := range r.rows {
		if x.Phone == phone {
			return &x, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) list(keep func(models.Identity) bool) []*models.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Identity, 0)
	for _, x := range r.rows {
		if keep(x) {
			x := x
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *UserRepo) ListByHouse(_ context.Context, houseID string) ([]*models.Identity, error) {
	return r.list(func(x models.Identity) bool { return x.HouseID == houseID }), nil
}

func (r *UserRepo) ListByAgency(_ context.Context, agencyID string, roles ...models.RoleName) ([]*models.Identity, error) {
	return r.list(func(x models.Identity) bool {
		if x.AgencyID != agencyID {
			return false
		}
		if len(roles) == 0 {
			return true
		}
		for _, role := range roles {
			if x.Role == role {
				return true
			}
		}
		return false
	}), nil
}

func (r *UserRepo) CountByRole(_ context.Context) (map[models.RoleName]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[models.RoleName]int64)
	for _, x := range r.rows {
		out[x.Role]++
	}
	return out, nil
}

type HouseRepo struct {
	mu   sync.RWMutex
	rows map[string]models.House
}

func (r *HouseRepo) Create(_ context.Context, h *models.House) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[h.ID]; ok {
		return repository.ErrDuplicate
	}
	h.CreatedAt = now()
	h.UpdatedAt = h.CreatedAt
	r.rows[h.ID] = cloneHouse(*h)
	return nil
}

func cloneHouse(h models.House) models.House {
	h.MemberPhones = append([]string(nil), h.MemberPhones...)
	return h
}

func (r *HouseRepo) Update(_ context.Context, h *models.House) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[h.ID]; !ok {
		return repository.ErrNotFound
	}
	h.UpdatedAt = now()
	r.rows[h.ID] = cloneHouse(*h)
	return nil
}

func (r *HouseRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *HouseRepo) FindByID(_ context.Context, id string) (*models.House, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if x, ok := r.rows[id]; ok {
		x = cloneHouse(x)
		return &x, nil
	}
	return nil, repository.ErrNotFound
}

func (r *HouseRepo) find(match func(models.House) bool) (*models.House, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, x := range r.rows {
		if match(x) {
			x = cloneHouse(x)
			return &x, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *HouseRepo) FindByMemberPhone(_ context.Context, phone string) (*models.House, error) {
	return r.find(func(h models.House) bool { return h.HasMember(phone) })
}

func (r *HouseRepo) FindByAdminPhone(_ context.Context, phone string) (*models.House, error) {
	return r.find(func(h models.House) bool { return h.HouseAdminPhone == phone })
}

func (r *HouseRepo) ListByAgency(_ context.Context, agencyID string) ([]*models.House, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.House, 0)
	for _, x := range r.rows {
		if x.AgencyID == agencyID {
			x = cloneHouse(x)
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *HouseRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.rows)), nil
}

type AgencyRepo struct {
	mu   sync.RWMutex
	rows map[string]models.Agency
	// CreateErr, when set, is returned by Create.
	CreateErr error
}

func cloneAgency(a models.Agency) models.Agency {
	if a.CutoffTimes != nil {
		m := make(map[models.MealType]string, len(a.CutoffTimes))
		for k, v := range a.CutoffTimes {
			m[k] = v
		}
		a.CutoffTimes = m
	}
	return a
}

func (r *AgencyRepo) Create(_ context.Context, a *models.Agency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if _, ok := r.rows[a.ID]; ok {
		return repository.ErrDuplicate
	}
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	r.rows[a.ID] = cloneAgency(*a)
	return nil
}

func (r *AgencyRepo) Update(_ context.Context, a *models.Agency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID]; !ok {
		return repository.ErrNotFound
	}
	a.UpdatedAt = now()
	r.rows[a.ID] = cloneAgency(*a)
	return nil
}

func (r *AgencyRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *AgencyRepo) FindByID(_ context.Context, id string) (*models.Agency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if x, ok := r.rows[id]; ok {
		x = cloneAgency(x)
		return &x, nil
	}
	return nil, repository.ErrNotFound
}

func (r *AgencyRepo) FindByOwnerID(_ context.Context, ownerID string) (*models.Agency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, x := range r.rows {
		if x.OwnerID == ownerID {
			x = cloneAgency(x)
			return &x, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *AgencyRepo) List(_ context.Context, status models.AgencyStatus) ([]*models.Agency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Agency, 0)
	for _, x := range r.rows {
		if status == "" || x.Status == status {
			x = cloneAgency(x)
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
