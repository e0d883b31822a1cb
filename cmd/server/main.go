package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "station-rental-backend/internal/api/http"
	"station-rental-backend/internal/cache"
	"station-rental-backend/internal/config"
	"station-rental-backend/internal/gateway"
	"station-rental-backend/internal/logger"
	"station-rental-backend/internal/repository/postgres"
	"station-rental-backend/internal/security"
	"station-rental-backend/internal/service"
	"station-rental-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Station Rental Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Redis (optional fast path; services fall back to the
	// database guards when it is absent)
	var svcCache service.Cache
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis)
		if err := redisCache.Ping(context.Background()); err != nil {
			logger.Warn("Redis unreachable, continuing without hold locks", "addr", cfg.Redis.Addr, "error", err)
		} else {
			logger.Info("Redis connection established", "addr", cfg.Redis.Addr)
			svcCache = redisCache
			defer redisCache.Close()
		}
	}

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize Photo Storage
	var photoStorage storage.PhotoStorage
	if cfg.Storage.Type == "" || cfg.Storage.Type == "mock" {
		logger.Info("Using mock storage (local filesystem)", "upload_dir", cfg.Storage.UploadDir)
		photoStorage, err = storage.NewMockStorage(cfg.Storage.UploadDir, cfg.Storage.BaseURL)
		if err != nil {
			logger.Error("Failed to initialize mock storage", "error", err)
			log.Fatalf("Failed to initialize mock storage: %v", err)
		}
	} else {
		logger.Error("Unsupported storage type", "type", cfg.Storage.Type)
		log.Fatalf("Storage type '%s' not yet implemented", cfg.Storage.Type)
	}

	// Initialize Payment Gateway
	vnpay := gateway.NewClient(cfg.VNPay.TmnCode, cfg.VNPay.HashSecret, cfg.VNPay.PayURL)

	// Initialize Email Service
	emailSvc := service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	// Initialize Services
	authSvc := service.NewAuthService(store.UserRepository, tokenManager)
	catalogSvc := service.NewCatalogService(store.StationRepository, store.VehicleRepository)
	bookingSvc := service.NewBookingService(
		store.BookingRepository,
		store.VehicleRepository,
		store.PaymentRepository,
		store.UserRepository,
		store.NotificationRepository,
		svcCache,
		emailSvc,
		time.Duration(cfg.Booking.HoldTTLMinutes)*time.Minute,
	)
	rentalSvc := service.NewRentalService(
		store.RentalRepository,
		store.BookingRepository,
		store.VehicleRepository,
		store.PaymentRepository,
		store.UserRepository,
		store.NotificationRepository,
		emailSvc,
	)
	paymentSvc := service.NewPaymentService(
		store.PaymentRepository,
		store.BookingRepository,
		store.RentalRepository,
		vnpay,
		svcCache,
		bookingSvc,
		rentalSvc,
		time.Duration(cfg.VNPay.InitCooldownSecs)*time.Second,
	)
	noteSvc := service.NewNotificationService(store.NotificationRepository)

	// Build the HTTP router
	router := httpapi.NewRouter(httpapi.Services{
		Auth:          authSvc,
		Catalog:       catalogSvc,
		Bookings:      bookingSvc,
		Payments:      paymentSvc,
		Rentals:       rentalSvc,
		Notifications: noteSvc,
		Photos:        photoStorage,
		Tokens:        tokenManager,
	})

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
