package handlers

import (
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type messageRequest struct {
	Type         string `json:"type" validate:"omitempty,oneof=text image"`
	Text         string `json:"text" validate:"max=2000"`
	ImageURL     string `json:"imageUrl" validate:"omitempty,url"`
	ThumbnailURL string `json:"thumbnailUrl" validate:"omitempty,url"`
}

type shareRequest struct {
	Type  string `json:"type" validate:"required,oneof=order bill"`
	RefID string `json:"refId" validate:"required"`
}

// GET /houses/:houseId/messages?before=
func (h *ChatHandler) History(c *fiber.Ctx) error {
	before, err := queryTime(c, "before")
	if err != nil {
		return err
	}
	out, err := h.chat.History(c.UserContext(), sess(c), c.Params("houseId"), before)
	if err != nil {
		return err
	}
	return ok(c, out)
}

// POST /houses/:houseId/messages
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	var req messageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.chat.Send(c.UserContext(), sess(c), c.Params("houseId"), services.MessageInput{
		Type:         models.MessageType(req.Type),
		Text:         req.Text,
		ImageURL:     req.ImageURL,
		ThumbnailURL: req.ThumbnailURL,
	})
	if err != nil {
		return err
	}
	return created(c, m)
}

// POST /houses/:houseId/messages/share
func (h *ChatHandler) Share(c *fiber.Ctx) error {
	var req shareRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.chat.Share(c.UserContext(), sess(c), c.Params("houseId"), models.MessageType(req.Type), req.RefID)
	if err != nil {
		return err
	}
	return created(c, m)
}
