package models

import (
	"fmt"
	"time"
)

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnacks    MealType = "snacks"
)

// MealTypes is the canonical display and submission order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnacks}

func ParseMealType(s string) (MealType, error) {
	for _, mt := range MealTypes {
		if string(mt) == s {
			return mt, nil
		}
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

func (m MealType) Label() string {
	switch m {
	case MealBreakfast:
		return "Breakfast"
	case MealLunch:
		return "Lunch"
	case MealDinner:
		return "Dinner"
	case MealSnacks:
		return "Snacks"
	}
	return string(m)
}

type MenuCategory string

const (
	CategoryMain     MenuCategory = "main"
	CategorySide     MenuCategory = "side"
	CategoryBread    MenuCategory = "bread"
	CategoryRice     MenuCategory = "rice"
	CategoryDessert  MenuCategory = "dessert"
	CategoryBeverage MenuCategory = "beverage"
	CategorySnack    MenuCategory = "snack"
)

// CatalogItem is an entry in an agency's master menu.
type CatalogItem struct {
	ID          string       `bson:"_id" json:"id"`
	AgencyID    string       `bson:"agency_id" json:"agencyId"`
	Name        string       `bson:"name" json:"name"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64      `bson:"price" json:"price"`
	Category    MenuCategory `bson:"category" json:"category"`
	CreatedAt   time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updatedAt"`
}

// MenuEntry is a catalog item snapshot published into a day's meal.
type MenuEntry struct {
	ID       string       `bson:"id" json:"id"`
	Name     string       `bson:"name" json:"name"`
	Price    float64      `bson:"price" json:"price"`
	Category MenuCategory `bson:"category" json:"category"`
}

func EntryFromCatalog(it *CatalogItem) MenuEntry {
	return MenuEntry{ID: it.ID, Name: it.Name, Price: it.Price, Category: it.Category}
}

type MealMenu struct {
	Items    []MenuEntry `bson:"items" json:"items"`
	Locked   bool        `bson:"locked" json:"locked"`
	LockedBy string      `bson:"locked_by,omitempty" json:"lockedBy,omitempty"`
}

// Find returns the entry with the given id.
func (m MealMenu) Find(id string) (MenuEntry, bool) {
	for _, it := range m.Items {
		if it.ID == id {
			return it, true
		}
	}
	return MenuEntry{}, false
}

// DailyMenu is keyed by (agency, date). Dates are YYYY-MM-DD in the service
// timezone.
type DailyMenu struct {
	ID        string                `bson:"_id" json:"id"`
	AgencyID  string                `bson:"agency_id" json:"agencyId"`
	Date      string                `bson:"date" json:"date"`
	Meals     map[MealType]MealMenu `bson:"meals" json:"meals"`
	UpdatedAt time.Time             `bson:"updated_at" json:"updatedAt"`
}

func DailyMenuID(agencyID, date string) string {
	return agencyID + ":" + date
}

// Meal returns the menu for mt, or an empty unlocked menu.
func (d *DailyMenu) Meal(mt MealType) MealMenu {
	if d == nil || d.Meals == nil {
		return MealMenu{}
	}
	return d.Meals[mt]
}
