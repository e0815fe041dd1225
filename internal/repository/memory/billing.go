package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
)

type BillRepo struct {
	mu   sync.RWMutex
	rows map[string]models.Bill
}

func cloneBill(b models.Bill) models.Bill {
	b.OrderIDs = append([]string(nil), b.OrderIDs...)
	b.Lines = append([]models.BillLine(nil), b.Lines...)
	return b
}

func (r *BillRepo) Create(_ context.Context, b *models.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[b.ID]; ok {
		return repository.ErrDuplicate
	}
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	r.rows[b.ID] = cloneBill(*b)
	return nil
}

func (r *BillRepo) FindByID(_ context.Context, id string) (*models.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	x, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	x = cloneBill(x)
	return &x, nil
}

func (r *BillRepo) Replace(_ context.Context, b *models.Bill, prev time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[b.ID]
	if !ok || !x.UpdatedAt.Equal(prev) {
		return repository.ErrConflict
	}
	b.UpdatedAt = now()
	if !b.UpdatedAt.After(prev) {
		b.UpdatedAt = prev.Add(time.Nanosecond)
	}
	r.rows[b.ID] = cloneBill(*b)
	return nil
}

func (r *BillRepo) list(keep func(models.Bill) bool) []*models.Bill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Bill, 0)
	for _, x := range r.rows {
		if keep(x) {
			x = cloneBill(x)
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart > out[j].PeriodStart })
	return out
}

func (r *BillRepo) ListByHouse(_ context.Context, houseID string) ([]*models.Bill, error) {
	return r.list(func(b models.Bill) bool { return b.HouseID == houseID }), nil
}

func (r *BillRepo) ListByAgency(_ context.Context, agencyID string) ([]*models.Bill, error) {
	return r.list(func(b models.Bill) bool { return b.AgencyID == agencyID }), nil
}

type PaymentRepo struct {
	mu   sync.RWMutex
	rows map[string]models.Payment
}

func (r *PaymentRepo) Create(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[p.ID]; ok {
		return repository.ErrDuplicate
	}
	p.CreatedAt = now()
	r.rows[p.ID] = *p
	return nil
}

func (r *PaymentRepo) FindByID(_ context.Context, id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	x, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &x, nil
}

func (r *PaymentRepo) Replace(_ context.Context, p *models.Payment, prev models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[p.ID]
	if !ok || x.Status != prev {
		return repository.ErrConflict
	}
	r.rows[p.ID] = *p
	return nil
}

func (r *PaymentRepo) list(keep func(models.Payment) bool) []*models.Payment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Payment, 0)
	for _, x := range r.rows {
		if keep(x) {
			x := x
			out = append(out, &x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *PaymentRepo) ListByBill(_ context.Context, billID string) ([]*models.Payment, error) {
	return r.list(func(p models.Payment) bool { return p.BillID == billID }), nil
}

func (r *PaymentRepo) ListByAgency(_ context.Context, agencyID string, status models.PaymentStatus) ([]*models.Payment, error) {
	return r.list(func(p models.Payment) bool {
		return p.AgencyID == agencyID && (status == "" || p.Status == status)
	}), nil
}
