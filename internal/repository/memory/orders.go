package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
)

type OrderRepo struct {
	mu   sync.RWMutex
	rows map[string]models.Order
	// CreateErr, when set, is returned by Create for the listed meal types.
	CreateErr map[models.MealType]error
	created   int
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	o.History = append([]models.StatusChange(nil), o.History...)
	return o
}

func (r *OrderRepo) Create(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.CreateErr[o.MealType]; err != nil {
		return err
	}
	if _, ok := r.rows[o.ID]; ok {
		return repository.ErrDuplicate
	}
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	r.rows[o.ID] = cloneOrder(*o)
	r.created++
	return nil
}

// Created counts successful Create calls.
func (r *OrderRepo) Created() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.created
}

func (r *OrderRepo) FindByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	x, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	x = cloneOrder(x)
	return &x, nil
}

func (r *OrderRepo) Replace(_ context.Context, o *models.Order, prev models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[o.ID]
	if !ok || x.Status != prev {
		return repository.ErrConflict
	}
	o.UpdatedAt = now()
	r.rows[o.ID] = cloneOrder(*o)
	return nil
}

func matchOrder(o models.Order, f models.OrderFilter) bool {
	switch {
	case f.Date != "":
		if o.Date != f.Date {
			return false
		}
	default:
		if f.From != "" && o.Date < f.From {
			return false
		}
		if f.To != "" && o.Date > f.To {
			return false
		}
	}
	if f.MealType != "" && o.MealType != f.MealType {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}

func (r *OrderRepo) list(keep func(models.Order) bool, f models.OrderFilter) []*models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Order, 0)
	for _, x := range r.rows {
		if keep(x) && matchOrder(x, f) {
			x = cloneOrder(x)
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && int64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (r *OrderRepo) ListByHouse(_ context.Context, houseID string, f models.OrderFilter) ([]*models.Order, error) {
	return r.list(func(o models.Order) bool { return o.HouseID == houseID }, f), nil
}

func (r *OrderRepo) ListByUser(_ context.Context, userID string, f models.OrderFilter) ([]*models.Order, error) {
	return r.list(func(o models.Order) bool { return o.UserID == userID }, f), nil
}

func (r *OrderRepo) ListByAgency(_ context.Context, agencyID string, f models.OrderFilter) ([]*models.Order, error) {
	return r.list(func(o models.Order) bool { return o.AgencyID == agencyID }, f), nil
}

func (r *OrderRepo) ListUnbilled(_ context.Context, houseID, from, to string) ([]*models.Order, error) {
	out := r.list(func(o models.Order) bool {
		return o.HouseID == houseID && o.Status != models.OrderCancelled && o.BillID == ""
	}, models.OrderFilter{From: from, To: to})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].MealType < out[j].MealType
	})
	return out, nil
}

func (r *OrderRepo) MarkBilled(_ context.Context, ids []string, billID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		x, ok := r.rows[id]
		if !ok || x.BillID != "" {
			continue
		}
		x.BillID = billID
		r.rows[id] = x
		n++
	}
	return n, nil
}

func (r *OrderRepo) ClearBill(_ context.Context, billID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, x := range r.rows {
		if x.BillID == billID {
			x.BillID = ""
			r.rows[id] = x
		}
	}
	return nil
}

type RequestRepo struct {
	mu   sync.RWMutex
	rows map[string]models.ManualRequest
}

func (r *RequestRepo) Create(_ context.Context, m *models.ManualRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[m.ID]; ok {
		return repository.ErrDuplicate
	}
	m.CreatedAt = now()
	m.UpdatedAt = m.CreatedAt
	r.rows[m.ID] = *m
	return nil
}

func (r *RequestRepo) FindByID(_ context.Context, id string) (*models.ManualRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	x, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &x, nil
}

func (r *RequestRepo) Replace(_ context.Context, m *models.ManualRequest, prev models.RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[m.ID]
	if !ok || x.Status != prev {
		return repository.ErrConflict
	}
	m.UpdatedAt = now()
	r.rows[m.ID] = *m
	return nil
}

func (r *RequestRepo) list(keep func(models.ManualRequest) bool, status models.RequestStatus) []*models.ManualRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.ManualRequest, 0)
	for _, x := range r.rows {
		if keep(x) && (status == "" || x.Status == status) {
			x := x
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *RequestRepo) ListByHouse(_ context.Context, houseID string, status models.RequestStatus) ([]*models.ManualRequest, error) {
	return r.list(func(m models.ManualRequest) bool { return m.HouseID == houseID }, status), nil
}

func (r *RequestRepo) ListByAgency(_ context.Context, agencyID string, status models.RequestStatus) ([]*models.ManualRequest, error) {
	return r.list(func(m models.ManualRequest) bool { return m.AgencyID == agencyID }, status), nil
}
