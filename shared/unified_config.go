package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// UnifiedConfiguration holds all configuration parameters for the application
type UnifiedConfiguration struct {
	Service  ServiceConfig  `json:"service"`
	Database DatabaseConfig `json:"database"`
	Sources  SourcesConfig  `json:"sources"`
	Cache    CacheConfig    `json:"cache"`
	Jobs     JobsConfig     `json:"jobs"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServiceConfig holds HTTP client configuration for remote sources
type ServiceConfig struct {
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	MaxRetryAttempts   int           `json:"max_retries"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `json:"url"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// SourcesConfig says where raw IPO records come from
type SourcesConfig struct {
	DataPath           string   `json:"data_path"`
	FeedURL            string   `json:"feed_url"`
	ScrapeURLs         []string `json:"scrape_urls"`
	UseHeadlessBrowser bool     `json:"use_headless_browser"`
	AliasFile          string   `json:"alias_file"`
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	DefaultTTL time.Duration `json:"default_ttl"`
	MaxSize    int           `json:"max_size"`
}

// JobsConfig holds background job intervals; zero disables a job
type JobsConfig struct {
	RefreshInterval    time.Duration `json:"refresh_interval"`
	IngestInterval     time.Duration `json:"ingest_interval"`
	CleanupInterval    time.Duration `json:"cleanup_interval"`
	RawRecordRetention time.Duration `json:"raw_record_retention"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Service: ServiceConfig{
			HTTPRequestTimeout: 30 * time.Second,
			RequestRateLimit:   1 * time.Second,
			MaxRetryAttempts:   3,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Sources: SourcesConfig{
			DataPath: "data",
		},
		Cache: CacheConfig{
			DefaultTTL: 5 * time.Minute,
			MaxSize:    1000,
		},
		Jobs: JobsConfig{
			RefreshInterval:    15 * time.Minute,
			IngestInterval:     8 * time.Hour,
			CleanupInterval:    12 * time.Hour,
			RawRecordRetention: 30 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "ipo-display",
		},
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	if c.Service.HTTPRequestTimeout <= 0 {
		c.Service.HTTPRequestTimeout = defaults.Service.HTTPRequestTimeout
		logger.Debug("Applied default Service.HTTPRequestTimeout")
	}

	if c.Service.RequestRateLimit <= 0 {
		c.Service.RequestRateLimit = defaults.Service.RequestRateLimit
		logger.Debug("Applied default Service.RequestRateLimit")
	}

	if c.Service.MaxRetryAttempts < 0 {
		c.Service.MaxRetryAttempts = defaults.Service.MaxRetryAttempts
		logger.Debug("Applied default Service.MaxRetryAttempts")
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
		logger.Debug("Applied default Database.MaxOpenConns")
	}

	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
		logger.Debug("Applied default Database.MaxIdleConns")
	}

	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}

	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = defaults.Cache.DefaultTTL
		logger.Debug("Applied default Cache.DefaultTTL")
	}

	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = defaults.Cache.MaxSize
		logger.Debug("Applied default Cache.MaxSize")
	}

	if c.Jobs.RefreshInterval < 0 {
		c.Jobs.RefreshInterval = 0
	}
	if c.Jobs.IngestInterval < 0 {
		c.Jobs.IngestInterval = 0
	}
	if c.Jobs.CleanupInterval < 0 {
		c.Jobs.CleanupInterval = 0
	}
	if c.Jobs.RawRecordRetention < 0 {
		c.Jobs.RawRecordRetention = 0
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		logger.Debug("Applied default Logging.Level")
	}

	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
		logger.Debug("Applied default Logging.Format")
	}

	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = defaults.Logging.ServiceName
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// ToJSON serializes the configuration to JSON
func (c *UnifiedConfiguration) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFromJSON deserializes configuration from JSON
func (c *UnifiedConfiguration) LoadFromJSON(jsonData []byte) error {
	if err := json.Unmarshal(jsonData, c); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.ValidateAndApplyDefaults()
	return nil
}

// ConfigureLogging applies the logging section to the standard logrus logger
func ConfigureLogging(cfg LoggingConfig) {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		logrus.Warnf("Invalid log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
