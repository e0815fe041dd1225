package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fathima-sithara/moms/internal/cache"
	"github.com/fathima-sithara/moms/internal/config"
	"github.com/fathima-sithara/moms/internal/handlers"
	"github.com/fathima-sithara/moms/internal/middleware"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository/memory"
	"github.com/fathima-sithara/moms/internal/routes"
	"github.com/fathima-sithara/moms/internal/server"
	"github.com/fathima-sithara/moms/internal/services"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/storage"
	"github.com/fathima-sithara/moms/internal/utils"
	"github.com/fathima-sithara/moms/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	today       = "2026-10-16"
	adminPhone  = "9876543210"
	memberPhone = "9123456780"
	password    = "secret123"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) at(hour, minute int) {
	c.mu.Lock()
	c.now = time.Date(2026, 10, 16, hour, minute, 0, 0, time.UTC)
	c.mu.Unlock()
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Fields  []interface{}   `json:"fields"`
}

type testApp struct {
	t     *testing.T
	app   *fiber.App
	clock *clock
	store *memory.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := zap.NewNop()
	ctx := context.Background()
	store := memory.New()
	clk := &clock{}
	clk.at(9, 0)

	feed := session.NewMemoryFeed()
	sessions := session.NewManager(feed, log)
	t.Cleanup(sessions.Shutdown)
	jwt := utils.NewJWTManager("test-secret", "moms", 15*time.Minute, 24*time.Hour)
	carts := cache.NewMemoryCarts()

	accounts := services.NewAccounts(store.Credentials, store.Users, feed, "moms.app", bcrypt.MinCost, 6, clk, log)
	auth := services.NewAuthService(accounts, store.Users, store.Houses, store.Agencies, sessions,
		cache.NewMemoryTokens(), cache.NewMemoryAttempts(5), carts, jwt, log)
	agencies := services.NewAgencyService(accounts, store.Agencies, store.Houses, store.Users, log)
	houses := services.NewHouseService(accounts, store.Houses, store.Users, log)
	menus := services.NewMenuService(store.Catalog, store.Menus, store.Agencies, clk, time.UTC, log)
	orders := services.NewOrderService(store.Orders, store.Houses, menus, nil, log)
	cartSvc := services.NewCartService(carts, menus, orders, log)
	requests := services.NewRequestService(store.Requests, store.Catalog, orders, log)
	billing := services.NewBillingService(store.Bills, store.Payments, store.Orders, store.Houses, clk, time.UTC, 7, nil, log)
	hub := ws.NewHub(log)
	chat := services.NewChatService(store.Chat, store.Houses, store.Orders, store.Bills, hub, clk, log)
	media := services.NewMediaService(storage.NewMemoryStore(false), store.Houses, 1<<20, time.Minute, clk, log)
	notes := services.NewNotificationService(store.Notifications, auth)
	dash := services.NewDashboardService(agencies, menus, store.Houses, store.Users, store.Orders, store.Requests, store.Bills, store.Payments, clk, log)

	require.NoError(t, store.Agencies.Create(ctx, &models.Agency{
		ID:          "A1",
		Name:        "Amma's Kitchen",
		Status:      models.AgencyStatusActive,
		CutoffTimes: map[models.MealType]string{models.MealLunch: "11:00", models.MealDinner: "19:00"},
	}))
	require.NoError(t, store.Houses.Create(ctx, &models.House{
		ID:              "H1",
		AgencyID:        "A1",
		Name:            "Green Villa",
		HouseAdminPhone: adminPhone,
		MemberPhones:    []string{adminPhone, memberPhone},
	}))
	dal := &models.CatalogItem{ID: "dal", AgencyID: "A1", Name: "Dal", Price: 40, Category: models.CategoryMain}
	roti := &models.CatalogItem{ID: "roti", AgencyID: "A1", Name: "Roti", Price: 10, Category: models.CategoryBread}
	require.NoError(t, store.Catalog.Create(ctx, dal))
	require.NoError(t, store.Catalog.Create(ctx, roti))
	require.NoError(t, store.Menus.Save(ctx, &models.DailyMenu{
		ID:       models.DailyMenuID("A1", today),
		AgencyID: "A1",
		Date:     today,
		Meals: map[models.MealType]models.MealMenu{
			models.MealLunch:  {Items: []models.MenuEntry{models.EntryFromCatalog(dal)}},
			models.MealDinner: {Items: []models.MenuEntry{models.EntryFromCatalog(roti)}},
		},
	}))

	cfg := &config.Config{S3: config.S3Cfg{MaxUploadBytes: 1 << 20}}
	app := server.New(cfg, routes.Handlers{
		Auth:    handlers.NewAuthHandler(auth),
		Menu:    handlers.NewMenuHandler(menus),
		Cart:    handlers.NewCartHandler(cartSvc),
		Orders:  handlers.NewOrderHandler(orders, requests),
		Billing: handlers.NewBillingHandler(billing),
		Agency:  handlers.NewAgencyHandler(agencies, houses),
		Chat:    handlers.NewChatHandler(chat),
		Media:   handlers.NewMediaHandler(media, 1<<20),
		Account: handlers.NewAccountHandler(notes, dash),
		WS:      ws.NewHandler(hub, chat, 5, log),
	}, routes.Guards{
		Session: middleware.Auth(jwt, auth, log),
		SignIn:  middleware.NewIPLimiter(600).Middleware(),
	}, log)

	return &testApp{t: t, app: app, clock: clk, store: store}
}

func (a *testApp) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func (a *testApp) register(phone, name string) string {
	a.t.Helper()
	status, env := a.do("POST", "/api/v1/auth/register", "", fiber.Map{"phone": phone, "password": password, "name": name})
	require.Equal(a.t, fiber.StatusCreated, status, env.Error)
	var res services.AuthResult
	require.NoError(a.t, json.Unmarshal(env.Data, &res))
	require.NotNil(a.t, res.Tokens)
	return res.Tokens.AccessToken
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	a := newTestApp(t)

	status, _ := a.do("GET", "/healthz", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, env := a.do("GET", "/api/v1/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, env.Success)
}

func TestValidationErrorsListFields(t *testing.T) {
	a := newTestApp(t)

	status, env := a.do("POST", "/api/v1/auth/login", "", fiber.Map{"phone": "12", "password": ""})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, services.CodeValidation, env.Code)
	assert.Len(t, env.Fields, 2)
}

func TestAuthErrorsMapToStatus(t *testing.T) {
	a := newTestApp(t)

	status, env := a.do("POST", "/api/v1/auth/register", "", fiber.Map{"phone": "9555555555", "password": password, "name": "Stranger"})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, services.CodeNotAuthorized, env.Code)

	a.register(adminPhone, "Asha")
	status, env = a.do("POST", "/api/v1/auth/register", "", fiber.Map{"phone": adminPhone, "password": password, "name": "Asha"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, services.CodePhoneRegistered, env.Code)

	status, env = a.do("POST", "/api/v1/auth/login", "", fiber.Map{"phone": adminPhone, "password": "wrong-pass"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, services.CodeInvalidCredentials, env.Code)
}

func TestProtectedRoutes(t *testing.T) {
	a := newTestApp(t)
	token := a.register(adminPhone, "Asha")

	status, env := a.do("GET", "/api/v1/cart", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, services.CodeInvalidCredentials, env.Code)

	status, env = a.do("GET", "/api/v1/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var me services.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, models.RoleNameHouseAdmin, me.User.Role)
	assert.Equal(t, models.DashboardHouseAdmin, me.Dashboard)

	status, env = a.do("GET", "/api/v1/admin/stats", token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, services.CodeForbidden, env.Code)

	status, _ = a.do("GET", "/api/v1/menu/today", token, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = a.do("POST", "/api/v1/auth/logout", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = a.do("GET", "/api/v1/auth/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestCheckoutStatusCodes(t *testing.T) {
	a := newTestApp(t)
	token := a.register(memberPhone, "Ravi")

	add := func(item string, mt models.MealType) {
		status, env := a.do("POST", "/api/v1/cart/items", token, fiber.Map{"menuItemId": item, "mealType": mt, "quantity": 1})
		require.Equal(t, fiber.StatusOK, status, env.Error)
	}

	add("dal", models.MealLunch)
	status, env := a.do("POST", "/api/v1/cart/checkout", token, nil)
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	var res services.CheckoutResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, services.CheckoutComplete, res.Outcome)

	// lunch closes between adding and checking out
	add("dal", models.MealLunch)
	add("roti", models.MealDinner)
	a.clock.at(11, 30)
	status, env = a.do("POST", "/api/v1/cart/checkout", token, nil)
	require.Equal(t, fiber.StatusMultiStatus, status, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, services.CheckoutPartial, res.Outcome)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, services.CodeMealClosed, res.Failed[0].Code)

	// only the closed lunch line is left
	status, env = a.do("POST", "/api/v1/cart/checkout", token, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, services.CodeMealClosed, env.Code)
}
