package ordering

import (
	"errors"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
)

var (
	ErrMealUnavailable = errors.New("no menu has been published for this meal")
	ErrMealLocked      = errors.New("ordering for this meal has been closed by the agency")
	ErrPastCutoff      = errors.New("the ordering cutoff for this meal has passed")
	ErrDateClosed      = errors.New("orders can no longer be placed for this date")
	ErrItemNotOnMenu   = errors.New("item is not on this meal's menu")
)

// MealAvailability is the customer-facing state of one meal on one day.
type MealAvailability struct {
	MealType   models.MealType    `json:"mealType"`
	Label      string             `json:"label"`
	Items      []models.MenuEntry `json:"items"`
	Cutoff     string             `json:"cutoff,omitempty"`
	Locked     bool               `json:"locked"`
	PastCutoff bool               `json:"pastCutoff"`
	Orderable  bool               `json:"orderable"`
}

// Err explains why the meal is not orderable, or returns nil.
func (a MealAvailability) Err() error {
	switch {
	case len(a.Items) == 0:
		return ErrMealUnavailable
	case a.Locked:
		return ErrMealLocked
	case a.PastCutoff:
		return ErrPastCutoff
	}
	return nil
}

// Evaluate computes the state of one meal. now must already be in the
// service timezone. The cutoff only applies on the menu's own date; menus for
// earlier dates are closed and menus for later dates ignore the cutoff.
func Evaluate(menu *models.DailyMenu, mt models.MealType, cutoffs map[models.MealType]string, now time.Time) MealAvailability {
	meal := menu.Meal(mt)
	a := MealAvailability{
		MealType: mt,
		Label:    mt.Label(),
		Items:    meal.Items,
		Cutoff:   cutoffs[mt],
		Locked:   meal.Locked,
	}
	if a.Items == nil {
		a.Items = []models.MenuEntry{}
	}
	today := now.Format("2006-01-02")
	switch {
	case menu == nil || menu.Date == today:
		a.PastCutoff = IsPastCutoff(now, a.Cutoff)
	case menu.Date < today:
		a.PastCutoff = true
	}
	a.Orderable = len(a.Items) > 0 && !a.Locked && !a.PastCutoff
	return a
}

// Availability lists the meals that have a published, non-empty item list,
// in canonical meal order.
func Availability(menu *models.DailyMenu, cutoffs map[models.MealType]string, now time.Time) []MealAvailability {
	out := make([]MealAvailability, 0, len(models.MealTypes))
	for _, mt := range models.MealTypes {
		a := Evaluate(menu, mt, cutoffs, now)
		if len(a.Items) == 0 {
			continue
		}
		out = append(out, a)
	}
	return out
}

// CheckDate rejects dates before today. Dates are YYYY-MM-DD so string order
// is calendar order.
func CheckDate(date string, now time.Time) error {
	if date < now.Format("2006-01-02") {
		return ErrDateClosed
	}
	return nil
}
