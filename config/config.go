package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort             string
	DatabaseURL            string
	DataPath               string
	FeedURL                string
	ScrapeURLs             string
	UseHeadlessBrowser     string
	AliasFile              string
	CacheTTLMinutes        string
	RefreshIntervalMinutes string
	IngestIntervalHours    string
	RetentionDays          string
	LogLevel               string
	LogFormat              string
	AdminToken             string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		DataPath:               getEnv("DATA_PATH", "data"),
		FeedURL:                getEnv("FEED_URL", ""),
		ScrapeURLs:             getEnv("SCRAPE_URLS", ""),
		UseHeadlessBrowser:     getEnv("USE_HEADLESS_BROWSER", "false"),
		AliasFile:              getEnv("ALIAS_FILE", ""),
		CacheTTLMinutes:        getEnv("CACHE_TTL_MINUTES", "5"),
		RefreshIntervalMinutes: getEnv("REFRESH_INTERVAL_MINUTES", "15"),
		IngestIntervalHours:    getEnv("INGEST_INTERVAL_HOURS", "8"),
		RetentionDays:          getEnv("RAW_RECORD_RETENTION_DAYS", "30"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		AdminToken:             getEnv("ADMIN_TOKEN", ""),
	}
}

// GetCacheTTL returns the cache TTL from environment or default
func (c *Config) GetCacheTTL() time.Duration {
	return parseDuration("CACHE_TTL_MINUTES", c.CacheTTLMinutes, time.Minute, 5*time.Minute)
}

// GetRefreshInterval returns how often the catalog is reloaded
func (c *Config) GetRefreshInterval() time.Duration {
	return parseDuration("REFRESH_INTERVAL_MINUTES", c.RefreshIntervalMinutes, time.Minute, 15*time.Minute)
}

// GetIngestInterval returns how often detail pages are scraped
func (c *Config) GetIngestInterval() time.Duration {
	return parseDuration("INGEST_INTERVAL_HOURS", c.IngestIntervalHours, time.Hour, 8*time.Hour)
}

// GetRetention returns how long stored raw records are kept
func (c *Config) GetRetention() time.Duration {
	return parseDuration("RAW_RECORD_RETENTION_DAYS", c.RetentionDays, 24*time.Hour, 30*24*time.Hour)
}

// GetScrapeURLs splits SCRAPE_URLS on commas
func (c *Config) GetScrapeURLs() []string {
	var urls []string
	for _, part := range strings.Split(c.ScrapeURLs, ",") {
		if part = strings.TrimSpace(part); part != "" {
			urls = append(urls, part)
		}
	}
	return urls
}

// ToUnified builds the typed configuration used by services
func (c *Config) ToUnified() *shared.UnifiedConfiguration {
	unified := shared.NewDefaultUnifiedConfiguration()
	unified.Database.URL = c.DatabaseURL
	unified.Sources.DataPath = c.DataPath
	unified.Sources.FeedURL = c.FeedURL
	unified.Sources.ScrapeURLs = c.GetScrapeURLs()
	unified.Sources.UseHeadlessBrowser, _ = strconv.ParseBool(c.UseHeadlessBrowser)
	unified.Sources.AliasFile = c.AliasFile
	unified.Cache.DefaultTTL = c.GetCacheTTL()
	unified.Jobs.RefreshInterval = c.GetRefreshInterval()
	unified.Jobs.IngestInterval = c.GetIngestInterval()
	unified.Jobs.RawRecordRetention = c.GetRetention()
	unified.Logging.Level = c.LogLevel
	unified.Logging.Format = c.LogFormat
	unified.ValidateAndApplyDefaults()
	return unified
}

func parseDuration(key, raw string, unit, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		logrus.Warnf("Invalid %s value: %s, using default %v", key, raw, fallback)
		return fallback
	}

	return time.Duration(value) * unit
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
