package handlers

import (
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/gofiber/fiber/v2"
)

type MenuHandler struct {
	menus *services.MenuService
}

func NewMenuHandler(menus *services.MenuService) *MenuHandler {
	return &MenuHandler{menus: menus}
}

type catalogRequest struct {
	Name        string  `json:"name" validate:"required,max=80"`
	Description string  `json:"description" validate:"max=500"`
	Price       float64 `json:"price" validate:"gt=0"`
	Category    string  `json:"category" validate:"required,oneof=main side bread rice dessert beverage snack"`
}

type catalogPatch struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=80"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Category    *string  `json:"category" validate:"omitempty,oneof=main side bread rice dessert beverage snack"`
}

type publishRequest struct {
	ItemIDs []string `json:"itemIds" validate:"required,dive,required"`
}

type toggleRequest struct {
	ItemID string `json:"itemId" validate:"required"`
}

type cutoffRequest struct {
	Cutoff string `json:"cutoff" validate:"omitempty,hhmm"`
}

// GET /agencies/:agencyId/menu-items
func (h *MenuHandler) ListItems(c *fiber.Ctx) error {
	items, err := h.menus.ListItems(c.UserContext(), sess(c), c.Params("agencyId"))
	if err != nil {
		return err
	}
	return ok(c, items)
}

// POST /agencies/:agencyId/menu-items
func (h *MenuHandler) CreateItem(c *fiber.Ctx) error {
	var req catalogRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	it, err := h.menus.CreateItem(c.UserContext(), sess(c), c.Params("agencyId"), services.CatalogInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    models.MenuCategory(req.Category),
	})
	if err != nil {
		return err
	}
	return created(c, it)
}

// PATCH /menu-items/:itemId
func (h *MenuHandler) UpdateItem(c *fiber.Ctx) error {
	var req catalogPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	in := services.CatalogUpdate{Name: req.Name, Description: req.Description, Price: req.Price}
	if req.Category != nil {
		cat := models.MenuCategory(*req.Category)
		in.Category = &cat
	}
	it, err := h.menus.UpdateItem(c.UserContext(), sess(c), c.Params("itemId"), in)
	if err != nil {
		return err
	}
	return ok(c, it)
}

// DELETE /menu-items/:itemId
func (h *MenuHandler) DeleteItem(c *fiber.Ctx) error {
	if err := h.menus.DeleteItem(c.UserContext(), sess(c), c.Params("itemId")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// GET /agencies/:agencyId/daily-menu/:date
func (h *MenuHandler) GetDaily(c *fiber.Ctx) error {
	v, err := h.menus.GetDaily(c.UserContext(), sess(c), c.Params("agencyId"), c.Params("date"))
	if err != nil {
		return err
	}
	return ok(c, v)
}

// PUT /agencies/:agencyId/daily-menu/:date/:mealType
func (h *MenuHandler) Publish(c *fiber.Ctx) error {
	mt, err := mealParam(c)
	if err != nil {
		return err
	}
	var req publishRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.menus.Publish(c.UserContext(), sess(c), c.Params("agencyId"), c.Params("date"), mt, req.ItemIDs)
	if err != nil {
		return err
	}
	return ok(c, m)
}

// POST /agencies/:agencyId/daily-menu/:date/:mealType/toggle
func (h *MenuHandler) Toggle(c *fiber.Ctx) error {
	mt, err := mealParam(c)
	if err != nil {
		return err
	}
	var req toggleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.menus.ToggleItem(c.UserContext(), sess(c), c.Params("agencyId"), c.Params("date"), mt, req.ItemID)
	if err != nil {
		return err
	}
	return ok(c, m)
}

// POST /agencies/:agencyId/daily-menu/:date/:mealType/lock
func (h *MenuHandler) Lock(c *fiber.Ctx) error {
	mt, err := mealParam(c)
	if err != nil {
		return err
	}
	m, err := h.menus.Lock(c.UserContext(), sess(c), c.Params("agencyId"), c.Params("date"), mt)
	if err != nil {
		return err
	}
	return ok(c, m)
}

// POST /agencies/:agencyId/daily-menu/:date/:mealType/unlock
func (h *MenuHandler) Unlock(c *fiber.Ctx) error {
	mt, err := mealParam(c)
	if err != nil {
		return err
	}
	m, err := h.menus.Unlock(c.UserContext(), sess(c), c.Params("agencyId"), c.Params("date"), mt)
	if err != nil {
		return err
	}
	return ok(c, m)
}

// PUT /agencies/:agencyId/cutoffs/:mealType
func (h *MenuHandler) UpdateCutoff(c *fiber.Ctx) error {
	mt, err := mealParam(c)
	if err != nil {
		return err
	}
	var req cutoffRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.menus.UpdateCutoff(c.UserContext(), sess(c), c.Params("agencyId"), mt, req.Cutoff)
	if err != nil {
		return err
	}
	return ok(c, a)
}

// GET /menu/today
func (h *MenuHandler) Today(c *fiber.Ctx) error {
	v, err := h.menus.TodayFor(c.UserContext(), sess(c))
	if err != nil {
		return err
	}
	return ok(c, v)
}
