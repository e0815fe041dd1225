package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fathima-sithara/moms/internal/cart"
	"github.com/fathima-sithara/moms/internal/metrics"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/ordering"
	"github.com/fathima-sithara/moms/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type CheckoutOutcome string

const (
	CheckoutComplete CheckoutOutcome = "complete"
	CheckoutPartial  CheckoutOutcome = "partial"
	CheckoutFailed   CheckoutOutcome = "failed"
)

type CartGroup struct {
	MealType models.MealType `json:"mealType"`
	Label    string          `json:"label"`
	Items    []cart.Line     `json:"items"`
	Total    float64         `json:"total"`
}

type CartView struct {
	Items     []cart.Line `json:"items"`
	Groups    []CartGroup `json:"groups"`
	Total     float64     `json:"total"`
	ItemCount int         `json:"itemCount"`
}

// MealResult is the outcome of placing one meal's order.
type MealResult struct {
	MealType models.MealType `json:"mealType"`
	Order    *models.Order   `json:"order,omitempty"`
	Error    string          `json:"error,omitempty"`
	Code     string          `json:"code,omitempty"`

	err error
}

// Err is the placement failure, if any.
func (r MealResult) Err() error { return r.err }

// CheckoutResult reports every meal separately. Placed meals are removed
// from the cart and failed meals stay in it.
type CheckoutResult struct {
	Outcome CheckoutOutcome `json:"outcome"`
	Placed  []MealResult    `json:"placed"`
	Failed  []MealResult    `json:"failed"`
	Cart    *CartView       `json:"cart"`
}

type CartService struct {
	carts  CartStore
	menus  *MenuService
	orders *OrderService
	log    *zap.Logger
}

func NewCartService(carts CartStore, menus *MenuService, orders *OrderService, log *zap.Logger) *CartService {
	return &CartService{carts: carts, menus: menus, orders: orders, log: log}
}

func viewOf(c *cart.Cart) *CartView {
	v := &CartView{Items: c.Items, Groups: []CartGroup{}, Total: c.Total(), ItemCount: c.ItemCount()}
	if v.Items == nil {
		v.Items = []cart.Line{}
	}
	byMeal := map[models.MealType][]cart.Line{}
	for _, l := range c.Items {
		byMeal[l.MealType] = append(byMeal[l.MealType], l)
	}
	for _, mt := range models.MealTypes {
		lines, ok := byMeal[mt]
		if !ok {
			continue
		}
		g := CartGroup{MealType: mt, Label: mt.Label(), Items: lines}
		for _, l := range lines {
			g.Total += l.Amount()
		}
		v.Groups = append(v.Groups, g)
	}
	return v
}

// shopper is a house member with a cart.
func shopper(sess *session.Session) (*caller, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if !models.IsHouseMember(c.role) || c.HouseID == "" || c.AgencyID == "" {
		return nil, ErrForbidden
	}
	return c, nil
}

func (s *CartService) load(ctx context.Context, sess *session.Session) (*cart.Cart, error) {
	c, err := s.carts.Get(ctx, sess.CartKey())
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return c, nil
}

func (s *CartService) save(ctx context.Context, sess *session.Session, c *cart.Cart) (*CartView, error) {
	if err := s.carts.Save(ctx, sess.CartKey(), c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return viewOf(c), nil
}

func (s *CartService) Get(ctx context.Context, sess *session.Session) (*CartView, error) {
	if _, err := shopper(sess); err != nil {
		return nil, err
	}
	c, err := s.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	return viewOf(c), nil
}

// AddItem adds an item from today's menu. The meal must be orderable and
// the price comes from the menu.
func (s *CartService) AddItem(ctx context.Context, sess *session.Session, menuItemID string, mt models.MealType, quantity int) (*CartView, error) {
	who, err := shopper(sess)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseMealType(string(mt)); err != nil {
		return nil, invalid(err.Error())
	}
	avail, err := s.menus.Evaluate(ctx, who.AgencyID, s.menus.Today(), mt)
	if err != nil {
		return nil, err
	}
	if err := avail.Err(); err != nil {
		return nil, mealClosed(mt, err)
	}
	entry, ok := models.MealMenu{Items: avail.Items}.Find(menuItemID)
	if !ok {
		return nil, &ValidationError{Code: CodeValidation, Message: ordering.ErrItemNotOnMenu.Error(), Err: ordering.ErrItemNotOnMenu}
	}

	c, err := s.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	err = c.AddItem(cart.Line{MenuItemID: entry.ID, Name: entry.Name, Price: entry.Price, Quantity: quantity, MealType: mt})
	if errors.Is(err, cart.ErrInvalidQuantity) || errors.Is(err, cart.ErrMissingItem) {
		return nil, invalid(err.Error())
	}
	if err != nil {
		return nil, err
	}
	return s.save(ctx, sess, c)
}

func hasLine(c *cart.Cart, id string) bool {
	for _, l := range c.Items {
		if l.MenuItemID == id {
			return true
		}
	}
	return false
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, sess *session.Session, menuItemID string, quantity int) (*CartView, error) {
	if _, err := shopper(sess); err != nil {
		return nil, err
	}
	c, err := s.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !hasLine(c, menuItemID) {
		return nil, ErrNotFound
	}
	c.UpdateQuantity(menuItemID, quantity)
	return s.save(ctx, sess, c)
}

func (s *CartService) RemoveItem(ctx context.Context, sess *session.Session, menuItemID string) (*CartView, error) {
	if _, err := shopper(sess); err != nil {
		return nil, err
	}
	c, err := s.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	c.RemoveItem(menuItemID)
	return s.save(ctx, sess, c)
}

func (s *CartService) Clear(ctx context.Context, sess *session.Session) error {
	if _, err := shopper(sess); err != nil {
		return err
	}
	if err := s.carts.Delete(ctx, sess.CartKey()); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Checkout places one order per meal type in the cart, concurrently, for
// today. Each meal succeeds or fails on its own.
func (s *CartService) Checkout(ctx context.Context, sess *session.Session) (*CheckoutResult, error) {
	who, err := shopper(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.orders.orderingHouse(ctx, who, who.HouseID)
	if err != nil {
		return nil, err
	}
	c, err := s.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	if c.Empty() {
		return nil, invalid("your cart is empty")
	}

	groups := c.GroupByMealType()
	results := make([]MealResult, len(groups))
	today := s.menus.Today()

	var g errgroup.Group
	for i, grp := range groups {
		g.Go(func() error {
			in := make([]ItemInput, len(grp.Items))
			agreed := make(map[string]float64, len(grp.Items))
			for j, it := range grp.Items {
				in[j] = ItemInput{MenuItemID: it.MenuItemID, Quantity: it.Quantity}
				agreed[it.MenuItemID] = it.PriceAtOrder
			}
			o, err := s.orders.place(ctx, who, h, today, grp.MealType, in, agreed)
			results[i] = MealResult{MealType: grp.MealType, Order: o, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := &CheckoutResult{Placed: []MealResult{}, Failed: []MealResult{}}
	var placed []models.MealType
	for _, r := range results {
		if r.err != nil {
			r.Error, r.Code = describeFailure(r.err)
			if r.Code == CodeInternal {
				s.log.Error("order placement failed", zap.String("meal_type", string(r.MealType)), zap.Error(r.err))
			}
			res.Failed = append(res.Failed, r)
			continue
		}
		placed = append(placed, r.MealType)
		res.Placed = append(res.Placed, r)
	}

	switch {
	case len(res.Failed) == 0:
		res.Outcome = CheckoutComplete
	case len(res.Placed) == 0:
		res.Outcome = CheckoutFailed
	default:
		res.Outcome = CheckoutPartial
	}
	metrics.CheckoutOutcomes.WithLabelValues(string(res.Outcome)).Inc()

	// Reload so lines added while orders were being placed survive.
	latest, err := s.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	latest.RemoveMealTypes(placed...)
	if res.Cart, err = s.save(ctx, sess, latest); err != nil {
		return nil, err
	}
	return res, nil
}

// describeFailure renders a placement error for the client.
func describeFailure(err error) (msg, code string) {
	code = CodeOf(err)
	if code == CodeInternal {
		return "could not place this order, please retry", code
	}
	return PublicMessage(err), code
}
