package handlers

import (
	"database/sql"
	"sort"
	"time"

	"github.com/fenilmodi00/ipo-display/services"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/gofiber/fiber/v2"
)

// MetricsProvider is implemented by every component that keeps ServiceMetrics.
type MetricsProvider interface {
	Metrics() *shared.ServiceMetrics
}

type AdminHandler struct {
	Catalog   *services.IPOCatalog
	Providers map[string]MetricsProvider
	HTTP      map[string]*shared.HTTPMetrics
	DB        *sql.DB
}

func NewAdminHandler(catalog *services.IPOCatalog, db *sql.DB) *AdminHandler {
	return &AdminHandler{
		Catalog:   catalog,
		Providers: make(map[string]MetricsProvider),
		HTTP:      make(map[string]*shared.HTTPMetrics),
		DB:        db,
	}
}

// Register adds a named metrics provider. Nil providers are ignored.
func (h *AdminHandler) Register(name string, provider MetricsProvider) *AdminHandler {
	if provider != nil {
		h.Providers[name] = provider
	}
	return h
}

// RegisterHTTP adds named outbound HTTP counters.
func (h *AdminHandler) RegisterHTTP(name string, metrics *shared.HTTPMetrics) *AdminHandler {
	if metrics != nil {
		h.HTTP[name] = metrics
	}
	return h
}

// GetMetrics returns snapshots of every registered component.
func (h *AdminHandler) GetMetrics(c *fiber.Ctx) error {
	metrics := make(map[string]interface{})

	snapshots := make(map[string]shared.MetricsSnapshot, len(h.Providers)+3)
	snapshots["catalog"] = h.Catalog.Metrics().GetSnapshot()
	snapshots["normalizer"] = h.Catalog.Normalizer().Metrics().GetSnapshot()
	snapshots["cache"] = h.Catalog.Cache().Metrics().GetSnapshot()
	for _, name := range sortedKeys(h.Providers) {
		snapshots[name] = h.Providers[name].Metrics().GetSnapshot()
	}
	metrics["services"] = snapshots

	if len(h.HTTP) > 0 {
		httpStats := make(map[string]shared.HTTPMetricsSnapshot, len(h.HTTP))
		for name, m := range h.HTTP {
			httpStats[name] = m.GetSnapshot()
		}
		metrics["http"] = httpStats
	}

	metrics["catalog"] = map[string]interface{}{
		"cache_entries": h.Catalog.Cache().Size(),
		"last_loaded":   h.Catalog.LastLoaded(),
	}

	if h.DB != nil {
		dbStats := h.DB.Stats()
		metrics["database_stats"] = map[string]interface{}{
			"open_connections":     dbStats.OpenConnections,
			"in_use":               dbStats.InUse,
			"idle":                 dbStats.Idle,
			"wait_count":           dbStats.WaitCount,
			"wait_duration_ms":     dbStats.WaitDuration.Milliseconds(),
			"max_idle_closed":      dbStats.MaxIdleClosed,
			"max_idle_time_closed": dbStats.MaxIdleTimeClosed,
			"max_lifetime_closed":  dbStats.MaxLifetimeClosed,
		}
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"data":      metrics,
		"timestamp": time.Now(),
	})
}

func sortedKeys(m map[string]MetricsProvider) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
