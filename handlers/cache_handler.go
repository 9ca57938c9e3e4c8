package handlers

import (
	"github.com/fenilmodi00/ipo-display/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type CacheHandler struct {
	Catalog *services.IPOCatalog
}

func NewCacheHandler(catalog *services.IPOCatalog) *CacheHandler {
	return &CacheHandler{Catalog: catalog}
}

// InvalidateCache drops the cached catalog. With reload=true the catalog is
// reloaded before responding.
func (h *CacheHandler) InvalidateCache(c *fiber.Ctx) error {
	h.Catalog.Invalidate()
	logrus.WithField("component", "cache_handler").Info("Catalog cache invalidated via admin endpoint")

	if !c.QueryBool("reload", false) {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Cache invalidated",
		})
	}

	records, err := h.Catalog.Reload(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   "Cache invalidated but reload failed: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Cache invalidated and reloaded",
		"count":   len(records),
	})
}
