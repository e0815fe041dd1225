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

type RequestInput struct {
	Date     string
	MealType models.MealType
	Items    []ItemInput
	Notes    string
}

// RequestService handles consumption recorded outside the normal order
// flow. Approval turns a request into a manual_approved order, which skips
// the cutoff and lock checks.
type RequestService struct {
	requests repository.RequestRepository
	catalog  repository.CatalogRepository
	orders   *OrderService
	log      *zap.Logger
}

func NewRequestService(requests repository.RequestRepository, catalog repository.CatalogRepository, orders *OrderService, log *zap.Logger) *RequestService {
	return &RequestService{requests: requests, catalog: catalog, orders: orders, log: log}
}

func (s *RequestService) Create(ctx context.Context, sess *session.Session, in RequestInput) (*models.ManualRequest, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.orders.orderingHouse(ctx, c, "")
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseMealType(string(in.MealType)); err != nil {
		return nil, invalid(err.Error())
	}
	if _, err := utils.ParseDate(in.Date, s.orders.menus.loc); err != nil {
		return nil, invalid("date must be YYYY-MM-DD")
	}
	items, err := s.resolve(ctx, h.AgencyID, in.Items)
	if err != nil {
		return nil, err
	}

	now := s.orders.menus.clock.Now().UTC()
	r := &models.ManualRequest{
		ID:        utils.NewID(),
		HouseID:   h.ID,
		AgencyID:  h.AgencyID,
		UserID:    c.ID,
		UserName:  c.Name,
		Date:      in.Date,
		MealType:  in.MealType,
		Items:     items,
		Notes:     strings.TrimSpace(in.Notes),
		Status:    models.RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return r, nil
}

// resolve prices request items from the agency catalog.
func (s *RequestService) resolve(ctx context.Context, agencyID string, in []ItemInput) ([]models.OrderItem, error) {
	if len(in) == 0 {
		return nil, invalid("a request needs at least one item")
	}
	idx := map[string]int{}
	out := make([]models.OrderItem, 0, len(in))
	for _, it := range in {
		if it.Quantity < 1 {
			return nil, invalid("quantity must be at least 1")
		}
		if i, ok := idx[it.MenuItemID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		ci, err := s.catalog.FindByID(ctx, agencyID, it.MenuItemID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("unknown menu item " + it.MenuItemID)
		}
		if err != nil {
			return nil, fmt.Errorf("load menu item: %w", err)
		}
		idx[it.MenuItemID] = len(out)
		out = append(out, models.OrderItem{MenuItemID: ci.ID, Name: ci.Name, Quantity: it.Quantity, PriceAtOrder: ci.Price})
	}
	return out, nil
}

func (s *RequestService) ForHouse(ctx context.Context, sess *session.Session, houseID string, status models.RequestStatus) ([]*models.ManualRequest, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.orders.house(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if err := c.canViewHouse(h); err != nil {
		return nil, err
	}
	return s.requests.ListByHouse(ctx, houseID, status)
}

func (s *RequestService) ForAgency(ctx context.Context, sess *session.Session, agencyID string, status models.RequestStatus) ([]*models.ManualRequest, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.canManageAgency(agencyID); err != nil {
		return nil, err
	}
	return s.requests.ListByAgency(ctx, agencyID, status)
}

// decidable loads a pending request the caller administers.
func (s *RequestService) decidable(ctx context.Context, sess *session.Session, id string) (*caller, *models.ManualRequest, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, nil, err
	}
	r, err := s.requests.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load request: %w", err)
	}
	if c.role != models.HouseAdmin || c.HouseID != r.HouseID {
		return nil, nil, ErrForbidden
	}
	if r.Status != models.RequestPending {
		return nil, nil, invalid("this request has already been " + string(r.Status))
	}
	return c, r, nil
}

// Approve claims the request, then creates its order. If the order cannot be
// written the request goes back to pending.
func (s *RequestService) Approve(ctx context.Context, sess *session.Session, id string) (*models.ManualRequest, *models.Order, error) {
	c, r, err := s.decidable(ctx, sess, id)
	if err != nil {
		return nil, nil, err
	}
	r.Status = models.RequestApproved
	r.DecidedBy = c.ID
	r.UpdatedAt = s.orders.menus.clock.Now().UTC()
	if err := s.replace(ctx, r, models.RequestPending); err != nil {
		return nil, nil, err
	}

	o, err := s.orders.insert(ctx, &models.Order{
		HouseID:  r.HouseID,
		AgencyID: r.AgencyID,
		UserID:   r.UserID,
		UserName: r.UserName,
		Date:     r.Date,
		MealType: r.MealType,
		Items:    r.Items,
		Type:     models.OrderTypeManualApproved,
	}, c.ID)
	if err != nil {
		r.Status, r.DecidedBy = models.RequestPending, ""
		if rbErr := s.requests.Replace(context.WithoutCancel(ctx), r, models.RequestApproved); rbErr != nil {
			s.log.Error("failed to reopen request after order failure", zap.String("request_id", r.ID), zap.Error(rbErr))
		}
		return nil, nil, err
	}

	r.OrderID = o.ID
	if err := s.requests.Replace(ctx, r, models.RequestApproved); err != nil {
		s.log.Warn("request approved without order link", zap.String("request_id", r.ID), zap.String("order_id", o.ID), zap.Error(err))
	}
	return r, o, nil
}

func (s *RequestService) Reject(ctx context.Context, sess *session.Session, id, reason string) (*models.ManualRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("a reason is required")
	}
	c, r, err := s.decidable(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	r.Status = models.RequestRejected
	r.RejectReason = strings.TrimSpace(reason)
	r.DecidedBy = c.ID
	r.UpdatedAt = s.orders.menus.clock.Now().UTC()
	if err := s.replace(ctx, r, models.RequestPending); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RequestService) replace(ctx context.Context, r *models.ManualRequest, prev models.RequestStatus) error {
	err := s.requests.Replace(ctx, r, prev)
	if errors.Is(err, repository.ErrConflict) {
		return conflict("this request")
	}
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	return nil
}
