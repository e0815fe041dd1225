package handlers

import (
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AgencyHandler serves agencies, their helpers and their houses.
type AgencyHandler struct {
	agencies *services.AgencyService
	houses   *services.HouseService
}

func NewAgencyHandler(agencies *services.AgencyService, houses *services.HouseService) *AgencyHandler {
	return &AgencyHandler{agencies: agencies, houses: houses}
}

type createAgencyRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Address       string `json:"address" validate:"max=300"`
	OwnerName     string `json:"ownerName" validate:"required,max=80"`
	OwnerPhone    string `json:"ownerPhone" validate:"required,phone"`
	OwnerPassword string `json:"ownerPassword" validate:"required"`
}

type updateAgencyRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=120"`
	Address *string `json:"address" validate:"omitempty,max=300"`
}

type agencyStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active suspended"`
	Reason string `json:"reason" validate:"max=300"`
}

type helperRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required"`
}

type houseRequest struct {
	Name            string   `json:"name" validate:"required,max=120"`
	HouseAdminPhone string   `json:"houseAdminPhone" validate:"required,phone"`
	MemberPhones    []string `json:"memberPhones" validate:"dive,phone"`
	SmallHouseID    string   `json:"smallHouseId" validate:"max=40"`
	Address         string   `json:"address" validate:"max=300"`
}

type updateHouseRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=120"`
	SmallHouseID *string `json:"smallHouseId" validate:"omitempty,max=40"`
	Address      *string `json:"address" validate:"omitempty,max=300"`
}

type phoneRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// POST /admin/agencies
func (h *AgencyHandler) Create(c *fiber.Ctx) error {
	var req createAgencyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.agencies.Create(c.UserContext(), sess(c), services.AgencyInput{
		Name:          req.Name,
		Address:       req.Address,
		OwnerName:     req.OwnerName,
		OwnerPhone:    req.OwnerPhone,
		OwnerPassword: req.OwnerPassword,
	})
	if err != nil {
		return err
	}
	return created(c, a)
}

// GET /admin/agencies?status=
func (h *AgencyHandler) List(c *fiber.Ctx) error {
	out, err := h.agencies.List(c.UserContext(), sess(c), models.AgencyStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// GET /agencies/:agencyId
func (h *AgencyHandler) Get(c *fiber.Ctx) error {
	a, err := h.agencies.Get(c.UserContext(), sess(c), c.Params("agencyId"))
	if err != nil {
		return err
	}
	return ok(c, a)
}

// PATCH /agencies/:agencyId
func (h *AgencyHandler) Update(c *fiber.Ctx) error {
	var req updateAgencyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.agencies.Update(c.UserContext(), sess(c), c.Params("agencyId"), services.AgencyUpdate{Name: req.Name, Address: req.Address})
	if err != nil {
		return err
	}
	return ok(c, a)
}

// POST /admin/agencies/:agencyId/status
func (h *AgencyHandler) SetStatus(c *fiber.Ctx) error {
	var req agencyStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.agencies.SetStatus(c.UserContext(), sess(c), c.Params("agencyId"), models.AgencyStatus(req.Status), req.Reason)
	if err != nil {
		return err
	}
	return ok(c, a)
}

// DELETE /admin/agencies/:agencyId
func (h *AgencyHandler) Delete(c *fiber.Ctx) error {
	if err := h.agencies.Delete(c.UserContext(), sess(c), c.Params("agencyId")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// GET /admin/stats
func (h *AgencyHandler) Stats(c *fiber.Ctx) error {
	st, err := h.agencies.Stats(c.UserContext(), sess(c))
	if err != nil {
		return err
	}
	return ok(c, st)
}

// POST /helpers
func (h *AgencyHandler) AddHelper(c *fiber.Ctx) error {
	var req helperRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.agencies.AddHelper(c.UserContext(), sess(c), services.HelperInput{Name: req.Name, Phone: req.Phone, Password: req.Password})
	if err != nil {
		return err
	}
	return created(c, u)
}

// GET /helpers
func (h *AgencyHandler) ListHelpers(c *fiber.Ctx) error {
	out, err := h.agencies.ListHelpers(c.UserContext(), sess(c))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// DELETE /helpers/:userId
func (h *AgencyHandler) RemoveHelper(c *fiber.Ctx) error {
	if err := h.agencies.RemoveHelper(c.UserContext(), sess(c), c.Params("userId")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"removed": true})
}

// POST /agencies/:agencyId/houses
func (h *AgencyHandler) CreateHouse(c *fiber.Ctx) error {
	var req houseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	house, err := h.houses.Create(c.UserContext(), sess(c), c.Params("agencyId"), services.HouseInput{
		Name:            req.Name,
		HouseAdminPhone: req.HouseAdminPhone,
		MemberPhones:    req.MemberPhones,
		SmallHouseID:    req.SmallHouseID,
		Address:         req.Address,
	})
	if err != nil {
		return err
	}
	return created(c, house)
}

// GET /agencies/:agencyId/houses
func (h *AgencyHandler) ListHouses(c *fiber.Ctx) error {
	out, err := h.houses.ListByAgency(c.UserContext(), sess(c), c.Params("agencyId"))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// GET /houses/:houseId
func (h *AgencyHandler) GetHouse(c *fiber.Ctx) error {
	house, err := h.houses.Get(c.UserContext(), sess(c), c.Params("houseId"))
	if err != nil {
		return err
	}
	return ok(c, house)
}

// PATCH /houses/:houseId
func (h *AgencyHandler) UpdateHouse(c *fiber.Ctx) error {
	var req updateHouseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	house, err := h.houses.Update(c.UserContext(), sess(c), c.Params("houseId"), services.HouseUpdate{
		Name:         req.Name,
		SmallHouseID: req.SmallHouseID,
		Address:      req.Address,
	})
	if err != nil {
		return err
	}
	return ok(c, house)
}

// DELETE /houses/:houseId
func (h *AgencyHandler) DeleteHouse(c *fiber.Ctx) error {
	if err := h.houses.Delete(c.UserContext(), sess(c), c.Params("houseId")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// GET /houses/:houseId/members
func (h *AgencyHandler) Members(c *fiber.Ctx) error {
	out, err := h.houses.Members(c.UserContext(), sess(c), c.Params("houseId"))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// POST /houses/:houseId/members
func (h *AgencyHandler) AddMember(c *fiber.Ctx) error {
	var req phoneRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	house, err := h.houses.AddMember(c.UserContext(), sess(c), c.Params("houseId"), req.Phone)
	if err != nil {
		return err
	}
	return ok(c, house)
}

// DELETE /houses/:houseId/members/:phone
func (h *AgencyHandler) RemoveMember(c *fiber.Ctx) error {
	house, err := h.houses.RemoveMember(c.UserContext(), sess(c), c.Params("houseId"), c.Params("phone"))
	if err != nil {
		return err
	}
	return ok(c, house)
}

// PUT /houses/:houseId/admin
func (h *AgencyHandler) ChangeAdmin(c *fiber.Ctx) error {
	var req phoneRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	house, err := h.houses.ChangeAdmin(c.UserContext(), sess(c), c.Params("houseId"), req.Phone)
	if err != nil {
		return err
	}
	return ok(c, house)
}
