package handlers

import (
	"bytes"
	"fmt"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type IPOHandler struct {
	Catalog *services.IPOCatalog
}

func NewIPOHandler(catalog *services.IPOCatalog) *IPOHandler {
	return &IPOHandler{Catalog: catalog}
}

// GetIPOs lists canonical records, optionally filtered by status, window and q.
func (h *IPOHandler) GetIPOs(c *fiber.Ctx) error {
	filter, err := parseCatalogFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	ipos, err := h.Catalog.List(c.UserContext(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    ipos,
		"count":   len(ipos),
	})
}

// GetBuckets returns records grouped into open, this week, next week,
// coming soon, closed, listed and unknown.
func (h *IPOHandler) GetBuckets(c *fiber.Ctx) error {
	buckets, err := h.Catalog.Buckets(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    buckets,
		"counts":  buckets.Counts(),
	})
}

// ExportIPOs streams the filtered list as an .xlsx workbook.
func (h *IPOHandler) ExportIPOs(c *fiber.Ctx) error {
	filter, err := parseCatalogFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	ipos, err := h.Catalog.List(c.UserContext(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	var buf bytes.Buffer
	if err := services.WriteXLSX(&buf, ipos); err != nil {
		logrus.WithError(err).WithField("component", "ipo_handler").Error("Failed to build export workbook")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to build export",
		})
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="ipos.xlsx"`)
	return c.Send(buf.Bytes())
}

func (h *IPOHandler) GetIPOByID(c *fiber.Ctx) error {
	id := c.Params("id")
	ipo, found, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "IPO not found",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    ipo,
	})
}

func parseCatalogFilter(c *fiber.Ctx) (services.CatalogFilter, error) {
	filter := services.CatalogFilter{Query: c.Query("q")}

	if raw := c.Query("status"); raw != "" && raw != "all" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			return filter, fmt.Errorf("unknown status %q", raw)
		}
		filter.Status = status
	}

	if raw := c.Query("window"); raw != "" {
		window, ok := models.ParseWindow(raw)
		if !ok {
			return filter, fmt.Errorf("unknown window %q", raw)
		}
		filter.Window = window
	}

	return filter, nil
}
