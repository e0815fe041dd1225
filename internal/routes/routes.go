package routes

import (
	"github.com/fathima-sithara/moms/internal/handlers"
	"github.com/fathima-sithara/moms/internal/metrics"
	"github.com/fathima-sithara/moms/internal/middleware"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Menu    *handlers.MenuHandler
	Cart    *handlers.CartHandler
	Orders  *handlers.OrderHandler
	Billing *handlers.BillingHandler
	Agency  *handlers.AgencyHandler
	Chat    *handlers.ChatHandler
	Media   *handlers.MediaHandler
	Account *handlers.AccountHandler
	WS      *ws.Handler
}

// Guards are the request filters shared by several groups.
type Guards struct {
	// Session resolves the bearer token to a live session.
	Session fiber.Handler
	// SignIn limits the unauthenticated auth endpoints.
	SignIn fiber.Handler
	// Writes limits uploads and chat posts per session.
	Writes fiber.Handler
}

func pass(c *fiber.Ctx) error { return c.Next() }

func Setup(app *fiber.App, h Handlers, g Guards) {
	if g.SignIn == nil {
		g.SignIn = pass
	}
	if g.Writes == nil {
		g.Writes = pass
	}

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api/v1")

	registered := middleware.RequireRegistered()
	admin := middleware.RequireRoles(models.SystemAdmin)
	owner := middleware.RequireRoles(models.AgencyOwner)
	staff := middleware.RequireRoles(models.AgencyOwner, models.AgencyHelper)
	agencyView := middleware.RequireRoles(models.SystemAdmin, models.AgencyOwner, models.AgencyHelper)
	members := middleware.RequireRoles(models.HouseAdmin, models.Customer)
	authed := []fiber.Handler{g.Session, registered}

	auth := api.Group("/auth")
	auth.Post("/register", g.SignIn, h.Auth.Register)
	auth.Post("/login", g.SignIn, h.Auth.Login)
	auth.Post("/refresh", g.SignIn, h.Auth.Refresh)
	auth.Post("/logout", g.Session, h.Auth.Logout)
	auth.Get("/me", g.Session, h.Auth.Me)
	auth.Patch("/me", g.Session, h.Auth.UpdateMe)
	auth.Post("/me/reload", g.Session, h.Auth.Reload)

	sockets := api.Group("/ws", g.Session, h.WS.Upgrade)
	sockets.Get("/profile", h.WS.Profile())
	sockets.Get("/houses/:houseId", registered, h.WS.JoinHouse, h.WS.House())

	// admin
	adm := api.Group("/admin", append(authed, admin)...)
	adm.Post("/agencies", h.Agency.Create)
	adm.Get("/agencies", h.Agency.List)
	adm.Post("/agencies/:agencyId/status", h.Agency.SetStatus)
	adm.Delete("/agencies/:agencyId", h.Agency.Delete)
	adm.Get("/stats", h.Agency.Stats)

	helpers := api.Group("/helpers", append(authed, owner)...)
	helpers.Post("/", h.Agency.AddHelper)
	helpers.Get("/", h.Agency.ListHelpers)
	helpers.Delete("/:userId", h.Agency.RemoveHelper)

	// agencies
	ag := api.Group("/agencies", authed...)
	ag.Get("/:agencyId", agencyView, h.Agency.Get)
	ag.Patch("/:agencyId", agencyView, h.Agency.Update)
	ag.Get("/:agencyId/menu-items", h.Menu.ListItems)
	ag.Post("/:agencyId/menu-items", staff, h.Menu.CreateItem)
	ag.Get("/:agencyId/daily-menu/:date", h.Menu.GetDaily)
	ag.Put("/:agencyId/daily-menu/:date/:mealType", staff, h.Menu.Publish)
	ag.Post("/:agencyId/daily-menu/:date/:mealType/toggle", staff, h.Menu.Toggle)
	ag.Post("/:agencyId/daily-menu/:date/:mealType/lock", staff, h.Menu.Lock)
	ag.Post("/:agencyId/daily-menu/:date/:mealType/unlock", staff, h.Menu.Unlock)
	ag.Put("/:agencyId/cutoffs/:mealType", staff, h.Menu.UpdateCutoff)
	ag.Get("/:agencyId/orders/aggregate", agencyView, h.Orders.Aggregate)
	ag.Get("/:agencyId/orders", agencyView, h.Orders.ForAgency)
	ag.Get("/:agencyId/requests", agencyView, h.Orders.AgencyRequests)
	ag.Get("/:agencyId/bills", agencyView, h.Billing.ForAgency)
	ag.Get("/:agencyId/payments", agencyView, h.Billing.AgencyPayments)
	ag.Post("/:agencyId/houses", staff, h.Agency.CreateHouse)
	ag.Get("/:agencyId/houses", agencyView, h.Agency.ListHouses)

	menu := api.Group("/menu-items", append(authed, staff)...)
	menu.Patch("/:itemId", h.Menu.UpdateItem)
	menu.Delete("/:itemId", h.Menu.DeleteItem)

	api.Get("/menu/today", append(authed, h.Menu.Today)...)

	// houses
	hs := api.Group("/houses", authed...)
	hs.Get("/:houseId", h.Agency.GetHouse)
	hs.Patch("/:houseId", staff, h.Agency.UpdateHouse)
	hs.Delete("/:houseId", staff, h.Agency.DeleteHouse)
	hs.Get("/:houseId/members", h.Agency.Members)
	hs.Post("/:houseId/members", h.Agency.AddMember)
	hs.Delete("/:houseId/members/:phone", h.Agency.RemoveMember)
	hs.Put("/:houseId/admin", staff, h.Agency.ChangeAdmin)
	hs.Get("/:houseId/orders", h.Orders.ForHouse)
	hs.Get("/:houseId/requests", h.Orders.HouseRequests)
	hs.Get("/:houseId/bills", h.Billing.ForHouse)
	hs.Get("/:houseId/messages", h.Chat.History)
	hs.Post("/:houseId/messages", g.Writes, h.Chat.Send)
	hs.Post("/:houseId/messages/share", g.Writes, h.Chat.Share)

	// ordering
	cart := api.Group("/cart", append(authed, members)...)
	cart.Get("/", h.Cart.Get)
	cart.Delete("/", h.Cart.Clear)
	cart.Post("/items", h.Cart.Add)
	cart.Patch("/items/:menuItemId", h.Cart.Update)
	cart.Delete("/items/:menuItemId", h.Cart.Remove)
	cart.Post("/checkout", h.Cart.Checkout)

	orders := api.Group("/orders", authed...)
	orders.Post("/", members, h.Orders.Place)
	orders.Get("/mine", h.Orders.Mine)
	orders.Get("/:id", h.Orders.Get)
	orders.Patch("/:id", members, h.Orders.Update)
	orders.Post("/:id/cancel", h.Orders.Cancel)
	orders.Post("/:id/status", staff, h.Orders.Status)

	requests := api.Group("/requests", authed...)
	requests.Post("/", members, h.Orders.CreateRequest)
	requests.Post("/:id/approve", h.Orders.Approve)
	requests.Post("/:id/reject", h.Orders.Reject)

	// billing
	bills := api.Group("/bills", authed...)
	bills.Post("/", staff, h.Billing.Generate)
	bills.Get("/mine", h.Billing.Mine)
	bills.Get("/:id", h.Billing.Get)
	bills.Get("/:id/payments", h.Billing.BillPayments)

	payments := api.Group("/payments", authed...)
	payments.Post("/", members, h.Billing.RecordPayment)
	payments.Post("/:id/confirm", staff, h.Billing.Confirm)
	payments.Post("/:id/reject", staff, h.Billing.Reject)

	api.Post("/media/images", append(authed, g.Writes, h.Media.UploadImage)...)

	// account
	notes := api.Group("/notifications", authed...)
	notes.Get("/", h.Account.Notifications)
	notes.Post("/read-all", h.Account.MarkAllRead)
	notes.Post("/:id/read", h.Account.MarkRead)
	notes.Put("/settings", h.Account.Settings)

	api.Get("/dashboard", append(authed, h.Account.Dashboard)...)
}
