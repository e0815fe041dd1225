package handlers

import (
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/gofiber/fiber/v2"
)

type BillingHandler struct {
	billing *services.BillingService
}

func NewBillingHandler(billing *services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

type generateBillRequest struct {
	HouseID     string `json:"houseId" validate:"required"`
	PeriodStart string `json:"periodStart" validate:"required,isodate"`
	PeriodEnd   string `json:"periodEnd" validate:"required,isodate"`
}

type paymentRequest struct {
	BillID        string  `json:"billId" validate:"required"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	Method        string  `json:"method" validate:"required,oneof=cash upi bank_transfer other"`
	TransactionID string  `json:"transactionId" validate:"max=100"`
	ScreenshotURL string  `json:"screenshotUrl" validate:"required,url"`
	Notes         string  `json:"notes" validate:"max=500"`
}

// POST /bills
func (h *BillingHandler) Generate(c *fiber.Ctx) error {
	var req generateBillRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := h.billing.GenerateBill(c.UserContext(), sess(c), req.HouseID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return err
	}
	return created(c, b)
}

// GET /bills/mine
func (h *BillingHandler) Mine(c *fiber.Ctx) error {
	out, err := h.billing.Mine(c.UserContext(), sess(c))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// GET /bills/:id
func (h *BillingHandler) Get(c *fiber.Ctx) error {
	b, err := h.billing.Get(c.UserContext(), sess(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, b)
}

// GET /houses/:houseId/bills
func (h *BillingHandler) ForHouse(c *fiber.Ctx) error {
	out, err := h.billing.ForHouse(c.UserContext(), sess(c), c.Params("houseId"))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// GET /agencies/:agencyId/bills?status=
func (h *BillingHandler) ForAgency(c *fiber.Ctx) error {
	out, err := h.billing.ForAgency(c.UserContext(), sess(c), c.Params("agencyId"), models.BillStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// POST /payments
func (h *BillingHandler) RecordPayment(c *fiber.Ctx) error {
	var req paymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.billing.RecordPayment(c.UserContext(), sess(c), services.PaymentInput{
		BillID:        req.BillID,
		Amount:        req.Amount,
		Method:        models.PaymentMethod(req.Method),
		TransactionID: req.TransactionID,
		ScreenshotURL: req.ScreenshotURL,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return created(c, p)
}

// POST /payments/:id/confirm
func (h *BillingHandler) Confirm(c *fiber.Ctx) error {
	p, b, err := h.billing.ConfirmPayment(c.UserContext(), sess(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"payment": p, "bill": b})
}

// POST /payments/:id/reject
func (h *BillingHandler) Reject(c *fiber.Ctx) error {
	var req struct {
		Reason string `json:"reason" validate:"required,max=300"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.billing.RejectPayment(c.UserContext(), sess(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return ok(c, p)
}

// GET /bills/:id/payments
func (h *BillingHandler) BillPayments(c *fiber.Ctx) error {
	out, err := h.billing.PaymentsForBill(c.UserContext(), sess(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// GET /agencies/:agencyId/payments?status=
func (h *BillingHandler) AgencyPayments(c *fiber.Ctx) error {
	out, err := h.billing.PaymentsForAgency(c.UserContext(), sess(c), c.Params("agencyId"), models.PaymentStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return ok(c, out)
}
