package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SCRAPE_URLS", " https://a.example/ipo , ,https://b.example/ipo")
	t.Setenv("USE_HEADLESS_BROWSER", "true")
	t.Setenv("CACHE_TTL_MINUTES", "2")
	t.Setenv("REFRESH_INTERVAL_MINUTES", "0")
	t.Setenv("RAW_RECORD_RETENTION_DAYS", "7")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("ADMIN_TOKEN", "s3cret")

	cfg := LoadConfig()
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "s3cret", cfg.AdminToken)
	assert.Equal(t, []string{"https://a.example/ipo", "https://b.example/ipo"}, cfg.GetScrapeURLs())

	unified := cfg.ToUnified()
	assert.True(t, unified.Sources.UseHeadlessBrowser)
	assert.Equal(t, 2*time.Minute, unified.Cache.DefaultTTL)
	assert.Zero(t, unified.Jobs.RefreshInterval, "zero disables the refresh job")
	assert.Equal(t, 7*24*time.Hour, unified.Jobs.RawRecordRetention)
	assert.Equal(t, "text", unified.Logging.Format)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{CacheTTLMinutes: "soon", IngestIntervalHours: "-3", RetentionDays: ""}

	assert.Equal(t, 5*time.Minute, cfg.GetCacheTTL())
	assert.Equal(t, 8*time.Hour, cfg.GetIngestInterval())
	assert.Equal(t, 30*24*time.Hour, cfg.GetRetention())
	assert.Equal(t, 15*time.Minute, cfg.GetRefreshInterval())
	assert.Nil(t, cfg.GetScrapeURLs())
}

func TestToUnifiedAppliesDefaults(t *testing.T) {
	unified := (&Config{UseHeadlessBrowser: "maybe"}).ToUnified()

	assert.False(t, unified.Sources.UseHeadlessBrowser)
	assert.Equal(t, "info", unified.Logging.Level)
	assert.Equal(t, "json", unified.Logging.Format)
	assert.Equal(t, 1000, unified.Cache.MaxSize)
}
