package handlers

import (
	"time"

	"github.com/fenilmodi00/ipo-display/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// NormalizeHandler normalizes raw records posted by the caller without
// touching the catalog.
type NormalizeHandler struct {
	Normalizer *services.Normalizer
	Utility    *services.UtilityService
}

func NewNormalizeHandler(normalizer *services.Normalizer, utility *services.UtilityService) *NormalizeHandler {
	if utility == nil {
		utility = services.NewUtilityService()
	}
	return &NormalizeHandler{Normalizer: normalizer, Utility: utility}
}

// Normalize accepts an array of raw records, an object wrapping one, or a
// single record. The optional now query parameter fixes the reference time.
func (h *NormalizeHandler) Normalize(c *fiber.Ctx) error {
	now := h.Normalizer.Clock().Now()
	if raw := c.Query("now"); raw != "" {
		parsed, err := h.Utility.ParseReferenceTime(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		now = parsed
	}

	records, err := services.DecodeRecordPayload(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
	}

	start := time.Now()
	normalized, err := h.Normalizer.NormalizeAllAt(records, now)
	if err != nil {
		logrus.WithError(err).WithField("component", "normalize_handler").Error("Normalization failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	logrus.WithFields(logrus.Fields{
		"component":   "normalize_handler",
		"records":     len(normalized),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Normalized posted records")

	return c.JSON(fiber.Map{
		"success": true,
		"data":    normalized,
		"count":   len(normalized),
		"now":     now,
	})
}
