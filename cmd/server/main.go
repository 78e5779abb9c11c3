package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aerocharter/service-flightpath/internal/application"
	"github.com/aerocharter/service-flightpath/internal/config"
	itineraryDomain "github.com/aerocharter/service-flightpath/internal/domain/itinerary"
	itineraryEvents "github.com/aerocharter/service-flightpath/internal/events"
	"github.com/aerocharter/service-flightpath/internal/handler"
	"github.com/aerocharter/service-flightpath/internal/platform/database"
	"github.com/aerocharter/service-flightpath/internal/platform/health"
	"github.com/aerocharter/service-flightpath/internal/platform/kafka"
	"github.com/aerocharter/service-flightpath/internal/platform/logger"
	"github.com/aerocharter/service-flightpath/internal/platform/metrics"
	"github.com/aerocharter/service-flightpath/internal/platform/middleware"
	"github.com/aerocharter/service-flightpath/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "service-flightpath"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.Int("default_steps", cfg.Paths.DefaultSteps),
		zap.Float64("default_curve_ratio", cfg.Paths.DefaultCurveRatio),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.ItineraryModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize application service
	routeService := application.NewRouteMapService(
		repository.NewGormItineraryRepository(db),
		itineraryDomain.NewStandardFlightTimeEstimator(),
		kafkaProducer,
		cfg.Paths,
		log,
	)

	// Initialize and start itinerary event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + "flightpath-service"
	itineraryConsumer := itineraryEvents.NewItineraryEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		routeService,
		log,
	)
	defer func() { _ = itineraryConsumer.Close() }()

	go func() {
		log.Info("starting itinerary event consumer")
		if err := itineraryConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("itinerary event consumer error", zap.Error(err))
		}
	}()

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(metrics.Middleware())

	// Register health check and metrics routes
	health.NewHandler(db, serviceName).RegisterRoutes(router)
	router.GET("/metrics", metrics.Handler())

	// Register routes
	handler.NewItineraryHandler(routeService).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminItineraryHandler(routeService).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
