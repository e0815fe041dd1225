package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/fathima-sithara/moms/internal/events"
	"github.com/fathima-sithara/moms/internal/metrics"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/ordering"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/utils"
	"go.uber.org/zap"
)

type ItemInput struct {
	MenuItemID string
	Quantity   int
}

type PlaceInput struct {
	HouseID  string
	Date     string
	MealType models.MealType
	Items    []ItemInput
}

// AggregateLine is the kitchen view of one item across a meal's orders.
type AggregateLine struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Amount     float64 `json:"amount"`
}

type Aggregate struct {
	Date       string          `json:"date"`
	MealType   models.MealType `json:"mealType"`
	Orders     int             `json:"orders"`
	Lines      []AggregateLine `json:"lines"`
	TotalItems int             `json:"totalItems"`
	Total      float64         `json:"total"`
}

type OrderService struct {
	orders repository.OrderRepository
	houses repository.HouseRepository
	menus  *MenuService
	events emitter
	log    *zap.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	houses repository.HouseRepository,
	menus *MenuService,
	pub events.Publisher,
	log *zap.Logger,
) *OrderService {
	return &OrderService{orders: orders, houses: houses, menus: menus, events: emitter{pub: pub, log: log}, log: log}
}

func (s *OrderService) house(ctx context.Context, id string) (*models.House, error) {
	h, err := s.houses.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load house: %w", err)
	}
	return h, nil
}

// orderingHouse resolves the house a member orders for.
func (s *OrderService) orderingHouse(ctx context.Context, c *caller, houseID string) (*models.House, error) {
	if !models.IsHouseMember(c.role) || c.HouseID == "" {
		return nil, ErrForbidden
	}
	if houseID == "" {
		houseID = c.HouseID
	}
	if houseID != c.HouseID {
		return nil, ErrForbidden
	}
	return s.house(ctx, houseID)
}

// orderable checks the date and the meal's live availability.
func (s *OrderService) orderable(ctx context.Context, agencyID, date string, mt models.MealType) (ordering.MealAvailability, error) {
	if err := ordering.CheckDate(date, s.menus.now()); err != nil {
		return ordering.MealAvailability{}, mealClosed(mt, err)
	}
	avail, err := s.menus.Evaluate(ctx, agencyID, date, mt)
	if err != nil {
		return avail, err
	}
	if err := avail.Err(); err != nil {
		return avail, mealClosed(mt, err)
	}
	return avail, nil
}

// priceItems merges duplicate ids and prices every line from the published
// menu, unless agreed carries the price the member saw when adding it.
func priceItems(avail ordering.MealAvailability, in []ItemInput, agreed map[string]float64) ([]models.OrderItem, error) {
	if len(in) == 0 {
		return nil, invalid("an order needs at least one item")
	}
	menu := models.MealMenu{Items: avail.Items}
	idx := make(map[string]int, len(in))
	out := make([]models.OrderItem, 0, len(in))
	for _, it := range in {
		if it.Quantity < 1 {
			return nil, invalid("quantity must be at least 1")
		}
		if i, ok := idx[it.MenuItemID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		entry, ok := menu.Find(it.MenuItemID)
		if !ok {
			return nil, &ValidationError{Code: CodeValidation, Message: avail.Label + ": " + ordering.ErrItemNotOnMenu.Error(), Err: ordering.ErrItemNotOnMenu}
		}
		price := entry.Price
		if p, ok := agreed[entry.ID]; ok {
			price = p
		}
		idx[it.MenuItemID] = len(out)
		out = append(out, models.OrderItem{
			MenuItemID:   entry.ID,
			Name:         entry.Name,
			Quantity:     it.Quantity,
			PriceAtOrder: price,
		})
	}
	return out, nil
}

// PlaceOrder creates one order for one meal after checking that the meal is
// still orderable.
func (s *OrderService) PlaceOrder(ctx context.Context, sess *session.Session, in PlaceInput) (*models.Order, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.orderingHouse(ctx, c, in.HouseID)
	if err != nil {
		return nil, err
	}
	return s.place(ctx, c, h, in.Date, in.MealType, in.Items, nil)
}

func (s *OrderService) place(ctx context.Context, c *caller, h *models.House, date string, mt models.MealType, in []ItemInput, agreed map[string]float64) (*models.Order, error) {
	if _, err := models.ParseMealType(string(mt)); err != nil {
		return nil, invalid(err.Error())
	}
	if date == "" {
		date = s.menus.Today()
	}
	if _, err := utils.ParseDate(date, s.menus.loc); err != nil {
		return nil, invalid("date must be YYYY-MM-DD")
	}
	avail, err := s.orderable(ctx, h.AgencyID, date, mt)
	if err != nil {
		return nil, err
	}
	items, err := priceItems(avail, in, agreed)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, &models.Order{
		HouseID:  h.ID,
		AgencyID: h.AgencyID,
		UserID:   c.ID,
		UserName: c.Name,
		Date:     date,
		MealType: mt,
		Items:    items,
		Type:     models.OrderTypeNormal,
	}, c.ID)
}

// insert stores a new order in placed state and announces it.
func (s *OrderService) insert(ctx context.Context, o *models.Order, by string) (*models.Order, error) {
	now := s.menus.clock.Now().UTC()
	o.ID = utils.NewID()
	o.Status = models.OrderPlaced
	o.Total = models.ItemsTotal(o.Items)
	o.History = []models.StatusChange{{Status: models.OrderPlaced, By: by, At: now}}
	o.CreatedAt, o.UpdatedAt = now, now
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	metrics.OrdersPlaced.WithLabelValues(string(o.MealType), string(o.Type)).Inc()

	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	s.events.emit(ctx, events.New(models.EventOrderPlaced, o.AgencyID, o.HouseID, o.UserID, o.ID, map[string]string{
		"user_name":  o.UserName,
		"meal_type":  o.MealType.Label(),
		"date":       o.Date,
		"item_count": itoa(count),
		"total":      money(o.Total),
		"order_type": string(o.Type),
	}))
	return o, nil
}

func (s *OrderService) load(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return o, nil
}

// ownsOrder allows the ordering member and the admin of the order's house.
func ownsOrder(c *caller, o *models.Order) bool {
	if c.ID == o.UserID {
		return true
	}
	return c.role == models.HouseAdmin && c.HouseID == o.HouseID
}

func (s *OrderService) Get(ctx context.Context, sess *session.Session, id string) (*models.Order, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.role == models.SystemAdmin || c.memberOf(o.HouseID) || c.staffOf(o.AgencyID) {
		return o, nil
	}
	return nil, ErrForbidden
}

// UpdateOrder replaces the items of a placed order while its meal is still
// orderable.
func (s *OrderService) UpdateOrder(ctx context.Context, sess *session.Session, id string, in []ItemInput) (*models.Order, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownsOrder(c, o) {
		return nil, ErrForbidden
	}
	if o.Status != models.OrderPlaced {
		return nil, invalid("only placed orders can be changed")
	}
	if o.Type != models.OrderTypeNormal {
		return nil, invalid("approved manual orders cannot be changed")
	}
	avail, err := s.orderable(ctx, o.AgencyID, o.Date, o.MealType)
	if err != nil {
		return nil, err
	}
	items, err := priceItems(avail, in, nil)
	if err != nil {
		return nil, err
	}
	o.Items = items
	o.Total = models.ItemsTotal(items)
	o.UpdatedAt = s.menus.clock.Now().UTC()
	if err := s.replace(ctx, o, models.OrderPlaced); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) replace(ctx context.Context, o *models.Order, prev models.OrderStatus) error {
	err := s.orders.Replace(ctx, o, prev)
	if errors.Is(err, repository.ErrConflict) {
		return conflict("this order")
	}
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

// Cancel lets the ordering member or house admin withdraw a placed order
// while the meal is orderable. Agency staff may cancel placed and confirmed
// orders at any time.
func (s *OrderService) Cancel(ctx context.Context, sess *session.Session, id, reason string) (*models.Order, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case c.staffOf(o.AgencyID):
		if !models.CanTransition(o.Status, models.OrderCancelled) {
			return nil, ErrInvalidTransition
		}
	case ownsOrder(c, o):
		if o.Status != models.OrderPlaced {
			return nil, invalid("the agency has already accepted this order")
		}
		if _, err := s.orderable(ctx, o.AgencyID, o.Date, o.MealType); err != nil {
			return nil, err
		}
	default:
		return nil, ErrForbidden
	}
	return s.transition(ctx, c, o, models.OrderCancelled, reason)
}

// UpdateStatus moves an order along the kitchen workflow.
func (s *OrderService) UpdateStatus(ctx context.Context, sess *session.Session, id string, status models.OrderStatus, reason string) (*models.Order, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.staffOf(o.AgencyID) {
		return nil, ErrForbidden
	}
	if !models.CanTransition(o.Status, status) {
		return nil, ErrInvalidTransition
	}
	return s.transition(ctx, c, o, status, reason)
}

func (s *OrderService) transition(ctx context.Context, c *caller, o *models.Order, to models.OrderStatus, reason string) (*models.Order, error) {
	prev := o.Status
	now := s.menus.clock.Now().UTC()
	o.Status = to
	o.UpdatedAt = now
	o.History = append(o.History, models.StatusChange{Status: to, By: c.ID, At: now})
	if to == models.OrderCancelled {
		o.CancelReason = reason
	}
	if err := s.replace(ctx, o, prev); err != nil {
		return nil, err
	}
	s.events.emit(ctx, events.New(models.EventOrderStatusChanged, o.AgencyID, o.HouseID, o.UserID, o.ID, map[string]string{
		"status":    string(to),
		"meal_type": o.MealType.Label(),
		"date":      o.Date,
	}))
	return o, nil
}

func (s *OrderService) Mine(ctx context.Context, sess *session.Session, f models.OrderFilter) ([]*models.Order, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	return s.orders.ListByUser(ctx, c.ID, f)
}

func (s *OrderService) ForHouse(ctx context.Context, sess *session.Session, houseID string, f models.OrderFilter) ([]*models.Order, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.house(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if err := c.canViewHouse(h); err != nil {
		return nil, err
	}
	return s.orders.ListByHouse(ctx, houseID, f)
}

func (s *OrderService) ForAgency(ctx context.Context, sess *session.Session, agencyID string, f models.OrderFilter) ([]*models.Order, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.canManageAgency(agencyID); err != nil {
		return nil, err
	}
	return s.orders.ListByAgency(ctx, agencyID, f)
}

// Aggregate totals item quantities for one meal, ignoring cancelled orders.
func (s *OrderService) Aggregate(ctx context.Context, sess *session.Session, agencyID, date string, mt models.MealType) (*Aggregate, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.canManageAgency(agencyID); err != nil {
		return nil, err
	}
	orders, err := s.orders.ListByAgency(ctx, agencyID, models.OrderFilter{Date: date, MealType: mt})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return aggregate(date, mt, orders), nil
}

func aggregate(date string, mt models.MealType, orders []*models.Order) *Aggregate {
	agg := &Aggregate{Date: date, MealType: mt, Lines: []AggregateLine{}}
	idx := map[string]int{}
	for _, o := range orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		agg.Orders++
		for _, it := range o.Items {
			i, ok := idx[it.MenuItemID]
			if !ok {
				i = len(agg.Lines)
				idx[it.MenuItemID] = i
				agg.Lines = append(agg.Lines, AggregateLine{MenuItemID: it.MenuItemID, Name: it.Name})
			}
			agg.Lines[i].Quantity += it.Quantity
			agg.Lines[i].Amount += float64(it.Quantity) * it.PriceAtOrder
			agg.TotalItems += it.Quantity
			agg.Total += float64(it.Quantity) * it.PriceAtOrder
		}
	}
	sort.Slice(agg.Lines, func(i, j int) bool { return agg.Lines[i].Name < agg.Lines[j].Name })
	return agg
}
