package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"samadhan/config"
	"samadhan/lifecycle"
	"samadhan/models"
	"samadhan/notification"
	"samadhan/repository"
	"samadhan/routes"
	"samadhan/schema"
	"samadhan/service"
	"samadhan/telemetry"
	"samadhan/worker"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := config.LoadConfig()
	if cfg.Identity.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required; tokens are minted by the identity service and verified here")
	}

	ctx := context.Background()
	shutdownTelemetry, err := telemetry.Init(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	// Initialize database connection (UTC for consistent timestamps)
	db, err := sql.Open("mysql", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Database connection established")

	// Create missing tables, then verify the columns the hot paths depend on
	schema.InitializeDatabase(db)
	schema.ValidateRequiredColumns(db, nil)

	store := repository.NewMySQLStore(db)

	// Initialize services
	evaluator := lifecycle.NewEvaluator(cfg.Escalation.L1ThresholdDays, cfg.Escalation.L2ThresholdDays)
	notificationService := service.NewNotificationService(store, notification.NewLogSender(), &models.NotificationConfig{
		QueueSize:         cfg.Notification.QueueSize,
		MaxRetries:        cfg.Notification.MaxRetries,
		InitialRetryDelay: cfg.Notification.InitialRetryDelay,
		MaxRetryDelay:     cfg.Notification.MaxRetryDelay,
		DrainTimeout:      cfg.Notification.DrainTimeout,
	})
	audit := service.NewAuditRecorder()
	guards := service.NewGuardEvaluator()
	complaintService := service.NewComplaintService(store, guards, audit, notificationService, cfg.Routing.ConfidenceThreshold)
	escalationService := service.NewEscalationService(store, evaluator, audit, notificationService)
	disputeService := service.NewDisputeService(store, complaintService, audit, notificationService)

	// Background workers
	escalationWorker := worker.NewEscalationWorker(escalationService, cfg.Escalation.SweepInterval)
	autoCloseWorker := worker.NewAutoCloseWorker(complaintService, cfg.AutoClose.SweepInterval, cfg.AutoClose.SilenceWindow)
	notificationWorker := worker.NewNotificationWorker(notificationService, cfg.Notification.DrainTimeout)
	escalationWorker.Start()
	autoCloseWorker.Start()
	notificationWorker.Start()

	router := routes.SetupRoutes(
		complaintService,
		escalationService,
		disputeService,
		notificationService,
		escalationWorker,
		cfg.Identity.JWTSecret,
	)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Shutdown order: stop taking requests, stop the sweepers, then drain
	// the notification queue last so post-commit dispatches still go out.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	escalationWorker.Stop()
	autoCloseWorker.Stop()
	notificationWorker.Stop()

	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Printf("Telemetry shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
