package handlers

import (
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AccountHandler serves the caller's notifications and dashboard.
type AccountHandler struct {
	notes *services.NotificationService
	dash  *services.DashboardService
}

func NewAccountHandler(notes *services.NotificationService, dash *services.DashboardService) *AccountHandler {
	return &AccountHandler{notes: notes, dash: dash}
}

type settingsRequest struct {
	SMS *bool `json:"sms" validate:"required"`
}

// GET /notifications
func (h *AccountHandler) Notifications(c *fiber.Ctx) error {
	inbox, err := h.notes.List(c.UserContext(), sess(c))
	if err != nil {
		return err
	}
	return ok(c, inbox)
}

// POST /notifications/:id/read
func (h *AccountHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.notes.MarkRead(c.UserContext(), sess(c), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"read": true})
}

// POST /notifications/read-all
func (h *AccountHandler) MarkAllRead(c *fiber.Ctx) error {
	if err := h.notes.MarkAllRead(c.UserContext(), sess(c)); err != nil {
		return err
	}
	return ok(c, fiber.Map{"read": true})
}

// PUT /notifications/settings
func (h *AccountHandler) Settings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	st, err := h.notes.UpdateSettings(c.UserContext(), sess(c), *req.SMS)
	if err != nil {
		return err
	}
	return ok(c, st)
}

// GET /dashboard
func (h *AccountHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.dash.Get(c.UserContext(), sess(c))
	if err != nil {
		return err
	}
	return ok(c, d)
}
