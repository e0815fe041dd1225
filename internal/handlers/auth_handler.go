package handlers

import (
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentialsRequest struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=80"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type profileRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=80"`
	SMS  *bool   `json:"sms"`
}

// POST /auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Register(c.UserContext(), req.Phone, req.Password, req.Name)
	if err != nil {
		return err
	}
	return created(c, res)
}

// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		return err
	}
	return ok(c, res)
}

// POST /auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tokens, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return ok(c, tokens)
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.SignOut(c.UserContext(), sess(c)); err != nil {
		return err
	}
	return ok(c, fiber.Map{"signedOut": true})
}

// GET /auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return ok(c, h.auth.Me(sess(c)))
}

// PATCH /auth/me
func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	var req profileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.auth.UpdateProfile(c.UserContext(), sess(c), services.ProfileUpdate{Name: req.Name, SMS: req.SMS})
	if err != nil {
		return err
	}
	return ok(c, u)
}

// POST /auth/me/reload re-reads the profile from the store.
func (h *AuthHandler) Reload(c *fiber.Ctx) error {
	u, err := h.auth.RefreshUserData(c.UserContext(), sess(c))
	if err != nil {
		return err
	}
	return ok(c, u)
}
