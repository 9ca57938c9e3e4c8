package handlers

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-display/services"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	Catalog *services.IPOCatalog
	// Ping checks the database. Nil when the service runs without one.
	Ping func(ctx context.Context) error
}

func NewHealthHandler(catalog *services.IPOCatalog, ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{Catalog: catalog, Ping: ping}
}

func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	checks := fiber.Map{}
	status := "ok"

	if h.Ping != nil {
		if err := h.Ping(c.UserContext()); err != nil {
			status = "degraded"
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}
	}

	lastLoaded := h.Catalog.LastLoaded()
	if lastLoaded.IsZero() {
		checks["catalog"] = "not loaded"
	} else {
		checks["catalog"] = "ok"
		checks["catalog_loaded_at"] = lastLoaded
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"success":   status == "ok",
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Unix(),
	})
}
