package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fathima-sithara/moms/internal/events"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/utils"
	"go.uber.org/zap"
)

const billUpdateRetries = 3

type PaymentInput struct {
	BillID        string
	Amount        float64
	Method        models.PaymentMethod
	TransactionID string
	ScreenshotURL string
	Notes         string
}

type BillingService struct {
	bills    repository.BillRepository
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	houses   repository.HouseRepository
	clock    Clock
	loc      *time.Location
	dueDays  int
	events   emitter
	log      *zap.Logger
}

func NewBillingService(
	bills repository.BillRepository,
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	houses repository.HouseRepository,
	clock Clock,
	loc *time.Location,
	dueDays int,
	pub events.Publisher,
	log *zap.Logger,
) *BillingService {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.UTC
	}
	return &BillingService{
		bills:    bills,
		payments: payments,
		orders:   orders,
		houses:   houses,
		clock:    clock,
		loc:      loc,
		dueDays:  dueDays,
		events:   emitter{pub: pub, log: log},
		log:      log,
	}
}

func (s *BillingService) house(ctx context.Context, id string) (*models.House, error) {
	h, err := s.houses.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load house: %w", err)
	}
	return h, nil
}

// billLines aggregates order items by day, meal, item and unit price.
func billLines(orders []*models.Order) ([]models.BillLine, float64) {
	type key struct {
		date  string
		meal  models.MealType
		item  string
		price float64
	}
	idx := map[key]int{}
	var lines []models.BillLine
	var total float64
	for _, o := range orders {
		for _, it := range o.Items {
			k := key{o.Date, o.MealType, it.MenuItemID, it.PriceAtOrder}
			i, ok := idx[k]
			if !ok {
				i = len(lines)
				idx[k] = i
				lines = append(lines, models.BillLine{
					Date:       o.Date,
					MealType:   o.MealType,
					MenuItemID: it.MenuItemID,
					Name:       it.Name,
					UnitPrice:  it.PriceAtOrder,
				})
			}
			amount := float64(it.Quantity) * it.PriceAtOrder
			lines[i].Quantity += it.Quantity
			lines[i].Amount += amount
			total += amount
		}
	}
	rank := map[models.MealType]int{}
	for i, mt := range models.MealTypes {
		rank[mt] = i
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.MealType != b.MealType {
			return rank[a.MealType] < rank[b.MealType]
		}
		return a.Name < b.Name
	})
	return lines, total
}

// GenerateBill bills every unbilled, non-cancelled order of the house in the
// period. Orders are tagged before the bill is written so that two
// overlapping runs cannot bill the same order twice.
func (s *BillingService) GenerateBill(ctx context.Context, sess *session.Session, houseID, periodStart, periodEnd string) (*models.Bill, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.house(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if err := c.canAdminHouse(h); err != nil {
		return nil, err
	}
	if _, err := utils.ParseDate(periodStart, s.loc); err != nil {
		return nil, invalid("periodStart must be YYYY-MM-DD")
	}
	if _, err := utils.ParseDate(periodEnd, s.loc); err != nil {
		return nil, invalid("periodEnd must be YYYY-MM-DD")
	}
	if periodEnd < periodStart {
		return nil, invalid("periodEnd is before periodStart")
	}

	orders, err := s.orders.ListUnbilled(ctx, houseID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("list unbilled orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, invalid("there are no unbilled orders in this period")
	}
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	lines, total := billLines(orders)

	now := s.clock.Now().UTC()
	b := &models.Bill{
		ID:          utils.NewID(),
		AgencyID:    h.AgencyID,
		HouseID:     h.ID,
		HouseName:   h.Name,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		OrderIDs:    ids,
		Lines:       lines,
		TotalAmount: total,
		Status:      models.BillIssued,
		DueDate:     now.AddDate(0, 0, s.dueDays),
		IssuedBy:    c.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	n, err := s.orders.MarkBilled(ctx, ids, b.ID)
	if err != nil || n != int64(len(ids)) {
		if clrErr := s.orders.ClearBill(context.WithoutCancel(ctx), b.ID); clrErr != nil {
			s.log.Error("failed to release orders", zap.String("bill_id", b.ID), zap.Error(clrErr))
		}
		if err != nil {
			return nil, fmt.Errorf("mark orders billed: %w", err)
		}
		return nil, conflict("some of these orders")
	}
	if err := s.bills.Create(ctx, b); err != nil {
		if clrErr := s.orders.ClearBill(context.WithoutCancel(ctx), b.ID); clrErr != nil {
			s.log.Error("failed to release orders", zap.String("bill_id", b.ID), zap.Error(clrErr))
		}
		return nil, fmt.Errorf("create bill: %w", err)
	}

	s.events.emit(ctx, events.New(models.EventBillGenerated, b.AgencyID, b.HouseID, c.ID, b.ID, map[string]string{
		"amount":       money(b.TotalAmount),
		"period_start": b.PeriodStart,
		"period_end":   b.PeriodEnd,
		"due_date":     utils.DateOf(b.DueDate, s.loc),
		"house_name":   b.HouseName,
	}))
	return b, nil
}

// present reports the overdue status at read time.
func (s *BillingService) present(bills ...*models.Bill) {
	now := s.clock.Now()
	for _, b := range bills {
		b.Status = b.EffectiveStatus(now)
	}
}

func (s *BillingService) load(ctx context.Context, id string) (*models.Bill, error) {
	b, err := s.bills.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bill: %w", err)
	}
	return b, nil
}

func (s *BillingService) canViewBill(c *caller, b *models.Bill) error {
	if c.role == models.SystemAdmin || c.memberOf(b.HouseID) || c.staffOf(b.AgencyID) {
		return nil
	}
	return ErrForbidden
}

func (s *BillingService) Get(ctx context.Context, sess *session.Session, id string) (*models.Bill, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canViewBill(c, b); err != nil {
		return nil, err
	}
	s.present(b)
	return b, nil
}

func (s *BillingService) ForHouse(ctx context.Context, sess *session.Session, houseID string) ([]*models.Bill, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	h, err := s.house(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if err := c.canViewHouse(h); err != nil {
		return nil, err
	}
	bills, err := s.bills.ListByHouse(ctx, houseID)
	if err != nil {
		return nil, err
	}
	s.present(bills...)
	return bills, nil
}

// Mine lists the bills of the caller's house.
func (s *BillingService) Mine(ctx context.Context, sess *session.Session) ([]*models.Bill, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if !models.IsHouseMember(c.role) || c.HouseID == "" {
		return nil, ErrForbidden
	}
	bills, err := s.bills.ListByHouse(ctx, c.HouseID)
	if err != nil {
		return nil, err
	}
	s.present(bills...)
	return bills, nil
}

// ForAgency lists the agency's bills, filtered by effective status.
func (s *BillingService) ForAgency(ctx context.Context, sess *session.Session, agencyID string, status models.BillStatus) ([]*models.Bill, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.canManageAgency(agencyID); err != nil {
		return nil, err
	}
	bills, err := s.bills.ListByAgency(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	s.present(bills...)
	if status == "" {
		return bills, nil
	}
	out := make([]*models.Bill, 0, len(bills))
	for _, b := range bills {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

func validMethod(m models.PaymentMethod) bool {
	switch m {
	case models.PaymentCash, models.PaymentUPI, models.PaymentBankTransfer, models.PaymentOther:
		return true
	}
	return false
}

// RecordPayment stores a house member's payment proof for review.
func (s *BillingService) RecordPayment(ctx context.Context, sess *session.Session, in PaymentInput) (*models.Payment, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	b, err := s.load(ctx, in.BillID)
	if err != nil {
		return nil, err
	}
	if !c.memberOf(b.HouseID) {
		return nil, ErrForbidden
	}
	switch {
	case b.Status == models.BillPaid:
		return nil, invalid("this bill is already paid")
	case in.Amount <= 0:
		return nil, invalid("amount must be greater than zero")
	case in.Amount > b.Remaining():
		return nil, invalid(fmt.Sprintf("amount exceeds the remaining %s", money(b.Remaining())))
	case !validMethod(in.Method):
		return nil, invalid("unknown payment method " + string(in.Method))
	case strings.TrimSpace(in.ScreenshotURL) == "":
		return nil, invalid("a payment screenshot is required")
	}

	p := &models.Payment{
		ID:            utils.NewID(),
		BillID:        b.ID,
		AgencyID:      b.AgencyID,
		HouseID:       b.HouseID,
		UserID:        c.ID,
		Amount:        in.Amount,
		Method:        in.Method,
		TransactionID: in.TransactionID,
		ScreenshotURL: in.ScreenshotURL,
		Notes:         in.Notes,
		Status:        models.PaymentPending,
		CreatedAt:     s.clock.Now().UTC(),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	s.events.emit(ctx, events.New(models.EventPaymentRecorded, p.AgencyID, p.HouseID, c.ID, p.ID, map[string]string{
		"user_name":  c.Name,
		"amount":     money(p.Amount),
		"house_name": b.HouseName,
	}))
	return p, nil
}

func (s *BillingService) loadPayment(ctx context.Context, c *caller, id string) (*models.Payment, error) {
	p, err := s.payments.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if !c.staffOf(p.AgencyID) {
		return nil, ErrForbidden
	}
	if p.Status != models.PaymentPending {
		return nil, invalid("this payment has already been " + string(p.Status))
	}
	return p, nil
}

func (s *BillingService) replacePayment(ctx context.Context, p *models.Payment, prev models.PaymentStatus) error {
	err := s.payments.Replace(ctx, p, prev)
	if errors.Is(err, repository.ErrConflict) {
		return conflict("this payment")
	}
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

// ConfirmPayment accepts a pending payment and credits its bill.
func (s *BillingService) ConfirmPayment(ctx context.Context, sess *session.Session, id string) (*models.Payment, *models.Bill, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.loadPayment(ctx, c, id)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.load(ctx, p.BillID)
	if err != nil {
		return nil, nil, err
	}
	if p.Amount > b.Remaining() {
		return nil, nil, invalid(fmt.Sprintf("payment exceeds the remaining %s", money(b.Remaining())))
	}

	now := s.clock.Now().UTC()
	p.Status = models.PaymentConfirmed
	p.DecidedBy = c.ID
	p.DecidedAt = &now
	if err := s.replacePayment(ctx, p, models.PaymentPending); err != nil {
		return nil, nil, err
	}

	b, err = s.credit(ctx, p.BillID, p.Amount)
	if err != nil {
		p.Status, p.DecidedBy, p.DecidedAt = models.PaymentPending, "", nil
		if rbErr := s.payments.Replace(context.WithoutCancel(ctx), p, models.PaymentConfirmed); rbErr != nil {
			s.log.Error("failed to reopen payment after bill update failure", zap.String("payment_id", p.ID), zap.Error(rbErr))
		}
		return nil, nil, err
	}

	s.events.emit(ctx, events.New(models.EventPaymentConfirmed, p.AgencyID, p.HouseID, p.UserID, p.ID, map[string]string{
		"amount":  money(p.Amount),
		"bill_id": p.BillID,
	}))
	s.present(b)
	return p, b, nil
}

// credit adds amount to the bill, retrying when another writer got there
// first.
func (s *BillingService) credit(ctx context.Context, billID string, amount float64) (*models.Bill, error) {
	for attempt := 0; attempt < billUpdateRetries; attempt++ {
		b, err := s.load(ctx, billID)
		if err != nil {
			return nil, err
		}
		if amount > b.Remaining() {
			return nil, invalid(fmt.Sprintf("payment exceeds the remaining %s", money(b.Remaining())))
		}
		prev := b.UpdatedAt
		b.PaidAmount += amount
		if b.Remaining() <= 0.005 {
			b.Status = models.BillPaid
		} else {
			b.Status = models.BillPartial
		}
		err = s.bills.Replace(ctx, b, prev)
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update bill: %w", err)
		}
		return b, nil
	}
	return nil, conflict("this bill")
}

func (s *BillingService) RejectPayment(ctx context.Context, sess *session.Session, id, reason string) (*models.Payment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("a reason is required")
	}
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	p, err := s.loadPayment(ctx, c, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	p.Status = models.PaymentRejected
	p.RejectReason = strings.TrimSpace(reason)
	p.DecidedBy = c.ID
	p.DecidedAt = &now
	if err := s.replacePayment(ctx, p, models.PaymentPending); err != nil {
		return nil, err
	}
	s.events.emit(ctx, events.New(models.EventPaymentRejected, p.AgencyID, p.HouseID, p.UserID, p.ID, map[string]string{
		"amount": money(p.Amount),
		"reason": p.RejectReason,
	}))
	return p, nil
}

func (s *BillingService) PaymentsForBill(ctx context.Context, sess *session.Session, billID string) ([]*models.Payment, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	b, err := s.load(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := s.canViewBill(c, b); err != nil {
		return nil, err
	}
	return s.payments.ListByBill(ctx, billID)
}

func (s *BillingService) PaymentsForAgency(ctx context.Context, sess *session.Session, agencyID string, status models.PaymentStatus) ([]*models.Payment, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if err := c.canManageAgency(agencyID); err != nil {
		return nil, err
	}
	return s.payments.ListByAgency(ctx, agencyID, status)
}
