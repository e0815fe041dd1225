package handlers

import (
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CartHandler struct {
	cart *services.CartService
}

func NewCartHandler(cart *services.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

type addItemRequest struct {
	MenuItemID string `json:"menuItemId" validate:"required"`
	MealType   string `json:"mealType" validate:"required,oneof=breakfast lunch dinner snacks"`
	Quantity   int    `json:"quantity" validate:"min=1,max=50"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=50"`
}

// GET /cart
func (h *CartHandler) Get(c *fiber.Ctx) error {
	v, err := h.cart.Get(c.UserContext(), sess(c))
	if err != nil {
		return err
	}
	return ok(c, v)
}

// POST /cart/items
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var req addItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := h.cart.AddItem(c.UserContext(), sess(c), req.MenuItemID, models.MealType(req.MealType), req.Quantity)
	if err != nil {
		return err
	}
	return ok(c, v)
}

// PATCH /cart/items/:menuItemId
func (h *CartHandler) Update(c *fiber.Ctx) error {
	var req quantityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := h.cart.UpdateQuantity(c.UserContext(), sess(c), c.Params("menuItemId"), req.Quantity)
	if err != nil {
		return err
	}
	return ok(c, v)
}

// DELETE /cart/items/:menuItemId
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	v, err := h.cart.RemoveItem(c.UserContext(), sess(c), c.Params("menuItemId"))
	if err != nil {
		return err
	}
	return ok(c, v)
}

// DELETE /cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	if err := h.cart.Clear(c.UserContext(), sess(c)); err != nil {
		return err
	}
	return ok(c, fiber.Map{"cleared": true})
}

// POST /cart/checkout answers 201 when every meal was placed, 207 when some
// were, and 422 when none were. The body always carries the full result.
func (h *CartHandler) Checkout(c *fiber.Ctx) error {
	res, err := h.cart.Checkout(c.UserContext(), sess(c))
	if err != nil {
		return err
	}
	switch res.Outcome {
	case services.CheckoutComplete:
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": res})
	case services.CheckoutPartial:
		return c.Status(fiber.StatusMultiStatus).JSON(fiber.Map{"success": true, "data": res})
	}
	code := services.CodeValidation
	if len(res.Failed) > 0 && res.Failed[0].Code != "" {
		code = res.Failed[0].Code
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"success": false,
		"code":    code,
		"error":   "no order could be placed",
		"data":    res,
	})
}
