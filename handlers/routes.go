package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health    *HealthHandler
	IPO       *IPOHandler
	Normalize *NormalizeHandler
	Cache     *CacheHandler
	Admin     *AdminHandler

	// AdminToken guards the admin routes when set.
	AdminToken string
}

// NewApp builds the Fiber app with middleware and routes.
func NewApp(h Handlers, enableRequestLog bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "ipo-display",
		ErrorHandler: errorHandler,
	})

	if enableRequestLog {
		app.Use(logger.New())
	}
	app.Use(cors.New())

	RegisterRoutes(app, h)
	return app
}

// RegisterRoutes mounts the API on app.
func RegisterRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", h.Health.GetHealth)

	api := app.Group("/api/v1")

	// IPO Routes
	api.Get("/ipos", h.IPO.GetIPOs)
	api.Get("/ipos/buckets", h.IPO.GetBuckets)
	api.Get("/ipos/export.xlsx", h.IPO.ExportIPOs)
	api.Get("/ipos/:id", h.IPO.GetIPOByID)

	api.Post("/normalize", h.Normalize.Normalize)

	// Admin Routes
	admin := api.Group("/admin", adminAuth(h.AdminToken))
	admin.Post("/cache/invalidate", h.Cache.InvalidateCache)
	admin.Get("/metrics", h.Admin.GetMetrics)
}

// errorHandler keeps unmatched routes and panics in the JSON envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
