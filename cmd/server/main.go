package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legalflow/config"
	"legalflow/db"
	"legalflow/handlers"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/observability"
	"legalflow/realtime"
	"legalflow/services"
	"legalflow/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()
	config.ConfigureLogging(cfg)

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	handlers.UseLocation(cfg.Location())
	services.InitializeStorage(cfg)
	if err := services.ConfigureSecrets(cfg.DataEncryptionKey); err != nil {
		log.Fatal().Err(err).Msg("Invalid DATA_ENCRYPTION_KEY")
	}
	services.PDF = &services.ChromePDF{ExecPath: cfg.ChromePath}
	services.WhatsApp = services.NewProviderClient(&http.Client{Timeout: cfg.WhatsAppAPITimeout})

	shutdownTracing, tracing, err := observability.InitTracing(context.Background(), cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
	} else if tracing {
		log.Info().Str("endpoint", cfg.OTELEndpoint).Msg("Tracing enabled")
	}

	metrics := observability.NewMetrics()
	services.Metrics = metrics

	hub := realtime.NewHub()
	go hub.Run()
	services.Events = hub

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	if tracing {
		e.Use(middleware.Tracing())
	}
	e.Use(middleware.Metrics(metrics))

	// Make config available to handlers
	e.Use(middleware.WithConfig(cfg))

	handlers.SetupRoutes(e, hub, metrics)

	if cfg.EnableScheduler {
		runner := jobs.NewRunner(db.DB, services.NewResendMailer(cfg), cfg)
		scheduler, err := jobs.StartScheduler(runner)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
		defer scheduler.Stop()
	}

	go func() {
		log.Info().Str("port", cfg.ServerPort).Str("environment", cfg.Environment).Msg("Server starting")
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Close()
	if err := shutdownTracing(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Server exited")
}
