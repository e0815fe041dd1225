// Package cart is the per-session order draft. It is a plain value; the
// cache package persists it between requests.
package cart

import (
	"errors"

	"github.com/fathima-sithara/moms/internal/models"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrMissingItem     = errors.New("menu item id is required")
)

type Line struct {
	MenuItemID string          `json:"menuItemId"`
	Name       string          `json:"name"`
	Price      float64         `json:"price"`
	Quantity   int             `json:"quantity"`
	MealType   models.MealType `json:"mealType"`
}

func (l Line) Amount() float64 { return l.Price * float64(l.Quantity) }

type Cart struct {
	Items []Line `json:"items"`
}

func (c *Cart) index(menuItemID string) int {
	for i := range c.Items {
		if c.Items[i].MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}

// AddItem appends the line, or increments the quantity of the existing line
// with the same menu item id. The existing line keeps its name, price and
// meal type.
func (c *Cart) AddItem(l Line) error {
	if l.MenuItemID == "" {
		return ErrMissingItem
	}
	if l.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i := c.index(l.MenuItemID); i >= 0 {
		c.Items[i].Quantity += l.Quantity
		return nil
	}
	c.Items = append(c.Items, l)
	return nil
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
// Unknown ids are ignored.
func (c *Cart) UpdateQuantity(menuItemID string, quantity int) {
	i := c.index(menuItemID)
	if i < 0 {
		return
	}
	if quantity <= 0 {
		c.removeAt(i)
		return
	}
	c.Items[i].Quantity = quantity
}

func (c *Cart) RemoveItem(menuItemID string) {
	if i := c.index(menuItemID); i >= 0 {
		c.removeAt(i)
	}
}

func (c *Cart) removeAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

func (c *Cart) Clear() { c.Items = nil }

func (c *Cart) Total() float64 {
	var t float64
	for _, l := range c.Items {
		t += l.Amount()
	}
	return t
}

func (c *Cart) ItemCount() int {
	var n int
	for _, l := range c.Items {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Empty() bool { return len(c.Items) == 0 }

// MealGroup is the slice of the cart that becomes one order.
type MealGroup struct {
	MealType models.MealType
	Items    []models.OrderItem
}

func (g MealGroup) Total() float64 { return models.ItemsTotal(g.Items) }

// GroupByMealType splits the cart into one group per meal type present, in
// canonical meal order. Lines with an unknown meal type are dropped.
func (c *Cart) GroupByMealType() []MealGroup {
	byMeal := make(map[models.MealType][]models.OrderItem)
	for _, l := range c.Items {
		byMeal[l.MealType] = append(byMeal[l.MealType], models.OrderItem{
			MenuItemID:   l.MenuItemID,
			Name:         l.Name,
			Quantity:     l.Quantity,
			PriceAtOrder: l.Price,
		})
	}
	var out []MealGroup
	for _, mt := range models.MealTypes {
		if items, ok := byMeal[mt]; ok {
			out = append(out, MealGroup{MealType: mt, Items: items})
		}
	}
	return out
}

// RemoveMealTypes drops every line belonging to one of the given meals.
func (c *Cart) RemoveMealTypes(meals ...models.MealType) {
	if len(meals) == 0 {
		return
	}
	drop := make(map[models.MealType]struct{}, len(meals))
	for _, m := range meals {
		drop[m] = struct{}{}
	}
	kept := c.Items[:0]
	for _, l := range c.Items {
		if _, ok := drop[l.MealType]; !ok {
			kept = append(kept, l)
		}
	}
	c.Items = kept
}
