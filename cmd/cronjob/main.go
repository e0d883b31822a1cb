package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"station-rental-backend/internal/config"
	"station-rental-backend/internal/gateway"
	"station-rental-backend/internal/jobs"
	"station-rental-backend/internal/logger"
	"station-rental-backend/internal/repository/postgres"
	"station-rental-backend/internal/scheduler"
	"station-rental-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-stale-holds', 'reconcile-unapplied-payments', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Station Rental Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	// Initialize Services. The reconciliation sweep re-runs the same
	// confirm/complete transitions the callback path uses, so the wiring
	// mirrors the server's.
	vnpay := gateway.NewClient(cfg.VNPay.TmnCode, cfg.VNPay.HashSecret, cfg.VNPay.PayURL)
	emailSvc := service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	bookingSvc := service.NewBookingService(
		store.BookingRepository,
		store.VehicleRepository,
		store.PaymentRepository,
		store.UserRepository,
		store.NotificationRepository,
		nil,
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
		nil,
		bookingSvc,
		rentalSvc,
		time.Duration(cfg.VNPay.InitCooldownSecs)*time.Second,
	)

	jobServices := &jobs.Services{
		Payment: paymentSvc,
		Email:   emailSvc,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(db, store, jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "expire-stale-holds":
		jobRunner.ExpireStaleHolds()
	case "reconcile-unapplied-payments":
		jobRunner.ReconcileUnappliedPayments()
	case "all":
		jobRunner.RunAllJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - expire-stale-holds\n")
		fmt.Printf("  - reconcile-unapplied-payments\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
