package services

import (
	"context"
	"fmt"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/session"
	"go.uber.org/zap"
)

const recentOrders = 5

type Dashboard struct {
	Kind    models.Dashboard `json:"dashboard"`
	Role    models.RoleName  `json:"role"`
	Summary any              `json:"summary"`
}

type AgencySummary struct {
	AgencyID        string                  `json:"agencyId"`
	Date            string                  `json:"date"`
	OrdersByMeal    map[models.MealType]int `json:"ordersByMeal"`
	PendingPayments int                     `json:"pendingPayments"`
	Outstanding     float64                 `json:"outstanding"`
	Houses          int                     `json:"houses"`
}

type HouseAdminSummary struct {
	HouseID         string  `json:"houseId"`
	HouseName       string  `json:"houseName"`
	Members         int     `json:"members"`
	Registered      int     `json:"registered"`
	PendingRequests int     `json:"pendingRequests"`
	UnpaidBills     int     `json:"unpaidBills"`
	AmountDue       float64 `json:"amountDue"`
}

type CustomerSummary struct {
	Today        *DailyMenuView  `json:"today,omitempty"`
	RecentOrders []*models.Order `json:"recentOrders"`
	AmountDue    float64         `json:"amountDue"`
}

type dashboardBuilder func(ctx context.Context, sess *session.Session, c *caller) (any, error)

type DashboardService struct {
	agencies *AgencyService
	menus    *MenuService
	houses   repository.HouseRepository
	users    repository.UserRepository
	orders   repository.OrderRepository
	requests repository.RequestRepository
	bills    repository.BillRepository
	payments repository.PaymentRepository
	clock    Clock
	log      *zap.Logger
	builders map[models.Dashboard]dashboardBuilder
}

func NewDashboardService(
	agencies *AgencyService,
	menus *MenuService,
	houses repository.HouseRepository,
	users repository.UserRepository,
	orders repository.OrderRepository,
	requests repository.RequestRepository,
	bills repository.BillRepository,
	payments repository.PaymentRepository,
	clock Clock,
	log *zap.Logger,
) *DashboardService {
	if clock == nil {
		clock = SystemClock
	}
	s := &DashboardService{
		agencies: agencies,
		menus:    menus,
		houses:   houses,
		users:    users,
		orders:   orders,
		requests: requests,
		bills:    bills,
		payments: payments,
		clock:    clock,
		log:      log,
	}
	s.builders = map[models.Dashboard]dashboardBuilder{
		models.DashboardSystemAdmin: s.systemAdmin,
		models.DashboardAgency:      s.agency,
		models.DashboardHouseAdmin:  s.houseAdmin,
		models.DashboardCustomer:    s.customer,
	}
	for _, d := range models.Dashboards {
		if s.builders[d] == nil {
			panic(fmt.Sprintf("services: no dashboard builder for %q", d))
		}
	}
	return s
}

// Get resolves the caller's role to its dashboard and builds the summary.
func (s *DashboardService) Get(ctx context.Context, sess *session.Session) (*Dashboard, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	kind := c.role.Dashboard()
	summary, err := s.builders[kind](ctx, sess, c)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Kind: kind, Role: c.role.Name(), Summary: summary}, nil
}

func (s *DashboardService) systemAdmin(ctx context.Context, _ *session.Session, _ *caller) (any, error) {
	return s.agencies.stats(ctx)
}

func (s *DashboardService) agency(ctx context.Context, _ *session.Session, c *caller) (any, error) {
	if c.AgencyID == "" {
		return nil, invalid("your account is not linked to an agency")
	}
	today := s.menus.Today()
	out := &AgencySummary{AgencyID: c.AgencyID, Date: today, OrdersByMeal: map[models.MealType]int{}}

	orders, err := s.orders.ListByAgency(ctx, c.AgencyID, models.OrderFilter{Date: today})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	for _, o := range orders {
		if o.Status != models.OrderCancelled {
			out.OrdersByMeal[o.MealType]++
		}
	}
	pending, err := s.payments.ListByAgency(ctx, c.AgencyID, models.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out.PendingPayments = len(pending)

	bills, err := s.bills.ListByAgency(ctx, c.AgencyID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	out.Outstanding = outstanding(bills)

	houses, err := s.houses.ListByAgency(ctx, c.AgencyID)
	if err != nil {
		return nil, fmt.Errorf("list houses: %w", err)
	}
	out.Houses = len(houses)
	return out, nil
}

func outstanding(bills []*models.Bill) float64 {
	var sum float64
	for _, b := range bills {
		if b.Status != models.BillPaid && b.Status != models.BillDraft {
			sum += b.Remaining()
		}
	}
	return sum
}

func (s *DashboardService) houseAdmin(ctx context.Context, _ *session.Session, c *caller) (any, error) {
	h, err := s.houses.FindByID(ctx, c.HouseID)
	if err != nil {
		return nil, fmt.Errorf("load house: %w", err)
	}
	out := &HouseAdminSummary{HouseID: h.ID, HouseName: h.Name, Members: len(h.MemberPhones)}

	users, err := s.users.ListByHouse(ctx, h.ID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out.Registered = len(users)

	reqs, err := s.requests.ListByHouse(ctx, h.ID, models.RequestPending)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	out.PendingRequests = len(reqs)

	bills, err := s.bills.ListByHouse(ctx, h.ID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	for _, b := range bills {
		if b.Status != models.BillPaid && b.Status != models.BillDraft {
			out.UnpaidBills++
		}
	}
	out.AmountDue = outstanding(bills)
	return out, nil
}

func (s *DashboardService) customer(ctx context.Context, sess *session.Session, c *caller) (any, error) {
	out := &CustomerSummary{}
	if c.AgencyID != "" {
		today, err := s.menus.TodayFor(ctx, sess)
		if err != nil {
			return nil, err
		}
		out.Today = today
	}
	orders, err := s.orders.ListByUser(ctx, c.ID, models.OrderFilter{Limit: recentOrders})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	out.RecentOrders = orders
	if c.HouseID != "" {
		bills, err := s.bills.ListByHouse(ctx, c.HouseID)
		if err != nil {
			return nil, fmt.Errorf("list bills: %w", err)
		}
		out.AmountDue = outstanding(bills)
	}
	return out, nil
}
