package server

import (
	"github.com/fathima-sithara/moms/internal/config"
	"github.com/fathima-sithara/moms/internal/handlers"
	"github.com/fathima-sithara/moms/internal/middleware"
	"github.com/fathima-sithara/moms/internal/routes"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// bodySlack leaves room for multipart framing around an upload.
const bodySlack = 64 << 10

// New initializes the Fiber application with config, middlewares, and routes.
func New(cfg *config.Config, h routes.Handlers, g routes.Guards, logger *zap.Logger) *fiber.App {
	bodyLimit := fiber.DefaultBodyLimit
	if n := int(cfg.S3.MaxUploadBytes) + bodySlack; n > bodyLimit {
		bodyLimit = n
	}
	app := fiber.New(fiber.Config{
		AppName:      "moms",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BodyLimit:    bodyLimit,
		ErrorHandler: handlers.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestLogger(logger))

	routes.Setup(app, h, g)

	return app
}
