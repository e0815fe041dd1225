package handlers

import (
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	orders   *services.OrderService
	requests *services.RequestService
}

func NewOrderHandler(orders *services.OrderService, requests *services.RequestService) *OrderHandler {
	return &OrderHandler{orders: orders, requests: requests}
}

type itemRequest struct {
	MenuItemID string `json:"menuItemId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"min=1,max=50"`
}

type placeOrderRequest struct {
	HouseID  string        `json:"houseId"`
	Date     string        `json:"date" validate:"required,isodate"`
	MealType string        `json:"mealType" validate:"required,oneof=breakfast lunch dinner snacks"`
	Items    []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateOrderRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=300"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed preparing ready delivered cancelled"`
	Reason string `json:"reason" validate:"max=300"`
}

type manualRequest struct {
	Date     string        `json:"date" validate:"required,isodate"`
	MealType string        `json:"mealType" validate:"required,oneof=breakfast lunch dinner snacks"`
	Items    []itemRequest `json:"items" validate:"required,min=1,dive"`
	Notes    string        `json:"notes" validate:"max=500"`
}

func items(in []itemRequest) []services.ItemInput {
	out := make([]services.ItemInput, len(in))
	for i, it := range in {
		out[i] = services.ItemInput{MenuItemID: it.MenuItemID, Quantity: it.Quantity}
	}
	return out
}

func orderFilter(c *fiber.Ctx) models.OrderFilter {
	return models.OrderFilter{
		Date:     c.Query("date"),
		From:     c.Query("from"),
		To:       c.Query("to"),
		MealType: models.MealType(c.Query("mealType")),
		Status:   models.OrderStatus(c.Query("status")),
		Limit:    queryInt(c, "limit", 100),
	}
}

// POST /orders
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var req placeOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.orders.PlaceOrder(c.UserContext(), sess(c), services.PlaceInput{
		HouseID:  req.HouseID,
		Date:     req.Date,
		MealType: models.MealType(req.MealType),
		Items:    items(req.Items),
	})
	if err != nil {
		return err
	}
	return created(c, o)
}

// GET /orders/mine
func (h *OrderHandler) Mine(c *fiber.Ctx) error {
	out, err := h.orders.Mine(c.UserContext(), sess(c), orderFilter(c))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// GET /orders/:id
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	o, err := h.orders.Get(c.UserContext(), sess(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, o)
}

// PATCH /orders/:id
func (h *OrderHandler) Update(c *fiber.Ctx) error {
	var req updateOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.orders.UpdateOrder(c.UserContext(), sess(c), c.Params("id"), items(req.Items))
	if err != nil {
		return err
	}
	return ok(c, o)
}

// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	var req reasonRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	o, err := h.orders.Cancel(c.UserContext(), sess(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return ok(c, o)
}

// POST /orders/:id/status
func (h *OrderHandler) Status(c *fiber.Ctx) error {
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.orders.UpdateStatus(c.UserContext(), sess(c), c.Params("id"), models.OrderStatus(req.Status), req.Reason)
	if err != nil {
		return err
	}
	return ok(c, o)
}

// GET /houses/:houseId/orders
func (h *OrderHandler) ForHouse(c *fiber.Ctx) error {
	out, err := h.orders.ForHouse(c.UserContext(), sess(c), c.Params("houseId"), orderFilter(c))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// GET /agencies/:agencyId/orders
func (h *OrderHandler) ForAgency(c *fiber.Ctx) error {
	out, err := h.orders.ForAgency(c.UserContext(), sess(c), c.Params("agencyId"), orderFilter(c))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// GET /agencies/:agencyId/orders/aggregate?date=&mealType=
func (h *OrderHandler) Aggregate(c *fiber.Ctx) error {
	mt, err := models.ParseMealType(c.Query("mealType"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	agg, err := h.orders.Aggregate(c.UserContext(), sess(c), c.Params("agencyId"), c.Query("date"), mt)
	if err != nil {
		return err
	}
	return ok(c, agg)
}

// POST /requests
func (h *OrderHandler) CreateRequest(c *fiber.Ctx) error {
	var req manualRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.requests.Create(c.UserContext(), sess(c), services.RequestInput{
		Date:     req.Date,
		MealType: models.MealType(req.MealType),
		Items:    items(req.Items),
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return created(c, r)
}

// GET /houses/:houseId/requests?status=
func (h *OrderHandler) HouseRequests(c *fiber.Ctx) error {
	out, err := h.requests.ForHouse(c.UserContext(), sess(c), c.Params("houseId"), models.RequestStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// GET /agencies/:agencyId/requests?status=
func (h *OrderHandler) AgencyRequests(c *fiber.Ctx) error {
	out, err := h.requests.ForAgency(c.UserContext(), sess(c), c.Params("agencyId"), models.RequestStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// POST /requests/:id/approve
func (h *OrderHandler) Approve(c *fiber.Ctx) error {
	r, o, err := h.requests.Approve(c.UserContext(), sess(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"request": r, "order": o})
}

// POST /requests/:id/reject
func (h *OrderHandler) Reject(c *fiber.Ctx) error {
	var req struct {
		Reason string `json:"reason" validate:"required,max=300"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.requests.Reject(c.UserContext(), sess(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return ok(c, r)
}
