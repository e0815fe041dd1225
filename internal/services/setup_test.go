package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fathima-sithara/moms/internal/cache"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository/memory"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/storage"
	"github.com/fathima-sithara/moms/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	password    = "secret123"
	ownerPhone  = "9000000001"
	adminPhone  = "9876543210"
	memberPhone = "9123456780"
	today       = "2026-10-16"
)

type recorder struct {
	mu     sync.Mutex
	events []*models.Event
}

func (r *recorder) Publish(_ context.Context, ev *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type broadcaster struct {
	mu   sync.Mutex
	sent []*models.ChatMessage
}

func (b *broadcaster) Broadcast(_ context.Context, m *models.ChatMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, m)
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type env struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	clock *testClock
	feed  *session.MemoryFeed
	carts *cache.MemoryCarts
	pub   *recorder
	live  *broadcaster
	blobs *storage.MemoryStore

	tokens   *cache.MemoryTokens
	jwt      *utils.JWTManager
	sessions *session.Manager
	accounts *services.Accounts
	auth     *services.AuthService
	agencies *services.AgencyService
	houses   *services.HouseService
	menus    *services.MenuService
	orders   *services.OrderService
	cart     *services.CartService
	requests *services.RequestService
	billing  *services.BillingService
	chat     *services.ChatService
	media    *services.MediaService
	notes    *services.NotificationService
	dash     *services.DashboardService

	agencyID string
	houseID  string
	items    map[string]*models.CatalogItem
}

// newEnv builds every service over memory repositories and seeds agency A1
// with house H1 (admin 9876543210, member 9123456780), a small catalog and
// today's lunch and dinner menus. The clock reads 09:00 UTC on 2026-10-16.
func newEnv(t *testing.T) *env {
	t.Helper()
	log := zap.NewNop()
	e := &env{
		t:     t,
		ctx:   context.Background(),
		store: memory.New(),
		clock: &testClock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)},
		feed:  session.NewMemoryFeed(),
		carts: cache.NewMemoryCarts(),
		pub:   &recorder{},
		live:  &broadcaster{},
		blobs: storage.NewMemoryStore(false),
		items: map[string]*models.CatalogItem{},
	}
	s := e.store
	e.tokens = cache.NewMemoryTokens()
	e.jwt = utils.NewJWTManager("test-secret", "moms", 15*time.Minute, 24*time.Hour)

	e.sessions = session.NewManager(e.feed, log)
	t.Cleanup(e.sessions.Shutdown)
	e.accounts = services.NewAccounts(s.Credentials, s.Users, e.feed, "moms.app", bcrypt.MinCost, 6, e.clock, log)
	e.auth = services.NewAuthService(e.accounts, s.Users, s.Houses, s.Agencies, e.sessions, e.tokens, cache.NewMemoryAttempts(3), e.carts, e.jwt, log)
	e.agencies = services.NewAgencyService(e.accounts, s.Agencies, s.Houses, s.Users, log)
	e.houses = services.NewHouseService(e.accounts, s.Houses, s.Users, log)
	e.menus = services.NewMenuService(s.Catalog, s.Menus, s.Agencies, e.clock, time.UTC, log)
	e.orders = services.NewOrderService(s.Orders, s.Houses, e.menus, e.pub, log)
	e.cart = services.NewCartService(e.carts, e.menus, e.orders, log)
	e.requests = services.NewRequestService(s.Requests, s.Catalog, e.orders, log)
	e.billing = services.NewBillingService(s.Bills, s.Payments, s.Orders, s.Houses, e.clock, time.UTC, 7, e.pub, log)
	e.chat = services.NewChatService(s.Chat, s.Houses, s.Orders, s.Bills, e.live, e.clock, log)
	e.media = services.NewMediaService(e.blobs, s.Houses, 64<<10, 10*time.Minute, e.clock, log)
	e.notes = services.NewNotificationService(s.Notifications, e.auth)
	e.dash = services.NewDashboardService(e.agencies, e.menus, s.Houses, s.Users, s.Orders, s.Requests, s.Bills, s.Payments, e.clock, log)

	e.seed()
	return e
}

// node builds a second API node over the same stores, token store and
// profile feed, with its own session manager.
func (e *env) node(opts ...session.Option) (*session.Manager, *services.AuthService) {
	m := session.NewManager(e.feed, zap.NewNop(), opts...)
	e.t.Cleanup(m.Shutdown)
	s := e.store
	auth := services.NewAuthService(e.accounts, s.Users, s.Houses, s.Agencies, m, e.tokens, cache.NewMemoryAttempts(3), e.carts, e.jwt, zap.NewNop())
	return m, auth
}

func (e *env) seed() {
	e.agencyID, e.houseID = "A1", "H1"
	owner, err := e.accounts.Create(e.ctx, ownerPhone, password, &models.Identity{
		Name:     "Owner",
		Role:     models.RoleNameAgencyOwner,
		AgencyID: e.agencyID,
	})
	require.NoError(e.t, err)
	require.NoError(e.t, e.store.Agencies.Create(e.ctx, &models.Agency{
		ID:          e.agencyID,
		Name:        "Amma's Kitchen",
		OwnerID:     owner.ID,
		OwnerPhone:  owner.Phone,
		Status:      models.AgencyStatusActive,
		CutoffTimes: map[models.MealType]string{models.MealLunch: "11:00", models.MealDinner: "19:00"},
	}))
	require.NoError(e.t, e.store.Houses.Create(e.ctx, &models.House{
		ID:              e.houseID,
		AgencyID:        e.agencyID,
		Name:            "Green Villa",
		HouseAdminPhone: adminPhone,
		MemberPhones:    []string{adminPhone, memberPhone},
	}))

	for _, it := range []models.CatalogItem{
		{ID: "dal", Name: "Dal", Price: 40, Category: models.CategoryMain},
		{ID: "rice", Name: "Rice", Price: 30, Category: models.CategoryRice},
		{ID: "roti", Name: "Roti", Price: 10, Category: models.CategoryBread},
	} {
		it.AgencyID = e.agencyID
		require.NoError(e.t, e.store.Catalog.Create(e.ctx, &it))
		e.items[it.ID] = &it
	}
	e.publish(today, models.MealLunch, "dal", "rice")
	e.publish(today, models.MealDinner, "roti", "dal")
}

func (e *env) publish(date string, mt models.MealType, ids ...string) {
	m, err := e.store.Menus.Get(e.ctx, e.agencyID, date)
	if err != nil {
		m = &models.DailyMenu{ID: models.DailyMenuID(e.agencyID, date), AgencyID: e.agencyID, Date: date, Meals: map[models.MealType]models.MealMenu{}}
	}
	entries := make([]models.MenuEntry, len(ids))
	for i, id := range ids {
		entries[i] = models.EntryFromCatalog(e.items[id])
	}
	m.Meals[mt] = models.MealMenu{Items: entries}
	require.NoError(e.t, e.store.Menus.Save(e.ctx, m))
}

func (e *env) at(hour, minute int) {
	e.clock.Set(time.Date(2026, 10, 16, hour, minute, 0, 0, time.UTC))
}

func (e *env) session(res *services.AuthResult) *session.Session {
	e.t.Helper()
	sess, ok := e.sessions.Get(res.Tokens.SessionID)
	require.True(e.t, ok)
	return sess
}

func (e *env) login(phone string) *session.Session {
	e.t.Helper()
	res, err := e.auth.Login(e.ctx, phone, password)
	require.NoError(e.t, err)
	return e.session(res)
}

func (e *env) register(phone, name string) *session.Session {
	e.t.Helper()
	res, err := e.auth.Register(e.ctx, phone, password, name)
	require.NoError(e.t, err)
	return e.session(res)
}

func (e *env) owner() *session.Session { return e.login(ownerPhone) }

// placeOrder places a lunch order for sess directly.
func (e *env) placeOrder(sess *session.Session, mt models.MealType, items ...services.ItemInput) *models.Order {
	e.t.Helper()
	o, err := e.orders.PlaceOrder(e.ctx, sess, services.PlaceInput{HouseID: e.houseID, Date: today, MealType: mt, Items: items})
	require.NoError(e.t, err)
	return o
}

const (
	e2eWait = time.Second
	e2eTick = 10 * time.Millisecond
)
