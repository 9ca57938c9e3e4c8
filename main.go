package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenilmodi00/ipo-display/config"
	"github.com/fenilmodi00/ipo-display/database"
	"github.com/fenilmodi00/ipo-display/handlers"
	"github.com/fenilmodi00/ipo-display/jobs"
	"github.com/fenilmodi00/ipo-display/services"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	unified := cfg.ToUnified()
	shared.ConfigureLogging(unified.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Field aliases, optionally overridden from a YAML file
	registry := services.NewDefaultAliasRegistry()
	if unified.Sources.AliasFile != "" {
		loaded, err := services.LoadAliasRegistry(unified.Sources.AliasFile)
		if err != nil {
			logrus.Fatalf("Failed to load alias file: %v", err)
		}
		registry = loaded
	}
	resolver := services.NewFieldResolver(registry)
	clock := shared.SystemClock{}

	// Connect to database when configured
	var postgresSource *services.PostgresSource
	if unified.Database.URL != "" {
		if err := database.ConnectWithConfig(unified.Database.URL, &unified.Database); err != nil {
			logrus.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		schema, err := database.MigrateAndValidate(ctx, database.DB, "")
		if err != nil {
			logrus.Warnf("Migration warning: %v", err)
		} else if !schema.IsValid {
			logrus.Warnf("Table %s does not match the expected schema, raw record storage may fail", schema.TableName)
		}
		postgresSource = services.NewPostgresSource(database.DB, resolver, clock)
	}

	// Record sources
	var sources []services.RecordSource
	if _, err := os.Stat(unified.Sources.DataPath); err == nil {
		sources = append(sources, services.NewJSONFileSource(unified.Sources.DataPath))
	} else {
		logrus.Warnf("Data path %s not readable, skipping file source: %v", unified.Sources.DataPath, err)
	}

	clientFactory := shared.NewHTTPClientFactory(unified.Service.HTTPRequestTimeout)
	defer clientFactory.CloseIdleConnections()

	var feedSource *services.RemoteJSONSource
	if unified.Sources.FeedURL != "" {
		feedSource = services.NewRemoteJSONSource(unified.Sources.FeedURL, unified.Service, clientFactory)
		sources = append(sources, feedSource)
	}
	if postgresSource != nil {
		sources = append(sources, postgresSource)
	}

	var htmlSource *services.HTMLTableSource
	if len(unified.Sources.ScrapeURLs) > 0 {
		var renderer services.PageRenderer
		if unified.Sources.UseHeadlessBrowser {
			renderer = services.NewChromePageRenderer(unified.Service.HTTPRequestTimeout)
		}
		htmlSource = services.NewHTMLTableSource(unified.Sources.ScrapeURLs, renderer, unified.Service)
		// Without a database, scraped pages are served directly
		if postgresSource == nil {
			sources = append(sources, htmlSource)
		}
	}

	multiSource := services.NewMultiSource(sources...)
	normalizer := services.NewNormalizer(resolver, clock)
	cache := services.NewRecordCache(unified.Cache, clock)
	defer cache.Close()
	catalog := services.NewIPOCatalog(multiSource, normalizer, cache)

	logrus.WithFields(logrus.Fields{
		"sources":          multiSource.Name(),
		"cache_ttl":        unified.Cache.DefaultTTL.String(),
		"cache_max_size":   unified.Cache.MaxSize,
		"refresh_interval": unified.Jobs.RefreshInterval.String(),
		"headless_browser": unified.Sources.UseHeadlessBrowser,
	}).Info("IPO display services initialized")

	// Start Background Jobs
	refreshJob := jobs.NewCatalogRefreshJob(catalog)
	go jobs.RunEvery(ctx, "catalog_refresh", unified.Jobs.RefreshInterval, true, func(ctx context.Context) {
		_, _ = refreshJob.Run(ctx)
	})

	var purger jobs.RecordPurger
	if postgresSource != nil {
		purger = postgresSource
	}
	cleanupJob := jobs.NewCacheCleanupJob(cache, purger, unified.Jobs.RawRecordRetention)
	go jobs.RunEvery(ctx, "cache_cleanup", unified.Jobs.CleanupInterval, false, cleanupJob.Run)

	if htmlSource != nil && postgresSource != nil {
		ingestJob := jobs.NewHTMLIngestJob(htmlSource, postgresSource, catalog)
		go jobs.RunEvery(ctx, "html_ingest", unified.Jobs.IngestInterval, true, func(ctx context.Context) {
			_, _ = ingestJob.Run(ctx)
		})
	}

	// Setup Fiber
	var ping func(ctx context.Context) error
	if database.DB != nil {
		ping = database.HealthCheck
	}

	adminHandler := handlers.NewAdminHandler(catalog, database.DB).
		Register("sources", multiSource)
	if htmlSource != nil {
		adminHandler.Register("html_source", htmlSource).
			Register("table_mapping", htmlSource.Utility())
	}
	if feedSource != nil {
		adminHandler.RegisterHTTP("feed", feedSource.HTTPMetrics())
	}

	app := handlers.NewApp(handlers.Handlers{
		Health:    handlers.NewHealthHandler(catalog, ping),
		IPO:       handlers.NewIPOHandler(catalog),
		Normalize: handlers.NewNormalizeHandler(normalizer, nil),
		Cache:     handlers.NewCacheHandler(catalog),
		Admin:     adminHandler,

		AdminToken: cfg.AdminToken,
	}, true)
	if cfg.AdminToken == "" {
		logrus.Warn("ADMIN_TOKEN not set, admin routes are unauthenticated")
	}

	go func() {
		<-ctx.Done()
		logrus.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.Errorf("Server shutdown failed: %v", err)
		}
	}()

	// Start server
	logrus.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logrus.Fatalf("Server failed to start: %v", err)
	}
}
