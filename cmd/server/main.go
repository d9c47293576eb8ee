package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"homelet/internal/app"
	"homelet/internal/config"
	"homelet/internal/gateway"
	"homelet/internal/handler"
	internalRedis "homelet/internal/redis"
	"homelet/internal/repository/postgres"
	"homelet/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, workers := wireServer(db, redisClient, nrApp, cfg)

	// Background workers: email delivery and verify-fallback reconciliation.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	for _, w := range workers {
		go w(workerCtx)
	}

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopWorkers()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server plus the
// background workers to run alongside it.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, []func(context.Context)) {
	// Initialize Redis stores.
	notifier := internalRedis.NewNotifier(redisClient)
	emailQueue := internalRedis.NewEmailQueue(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)

	// Initialize repositories.
	userRepo := postgres.NewUserRepository(db)
	listingRepo := postgres.NewListingRepository(db)
	txRepo := postgres.NewTransactionRepository(db)

	// Initialize gateway client. Explicitly constructed and passed down;
	// no global client state.
	paystack := gateway.NewPaystackClient(
		cfg.Paystack.SecretKey,
		gateway.WithBaseURL(cfg.Paystack.BaseURL),
	)

	// Initialize services.
	notificationService := service.NewNotificationService(notifier, emailQueue, userRepo)
	paymentService := service.NewPaymentService(txRepo, listingRepo, userRepo, paystack, notificationService, cfg.Paystack.CallbackURL)

	mailer := service.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.FromAddress)
	emailWorker := service.NewEmailWorker(emailQueue, mailer, service.RetryPolicy{
		MaxAttempts: cfg.Email.MaxAttempts,
		Base:        cfg.Email.BackoffBase,
		Max:         cfg.Email.BackoffMax,
	})
	sweeper := service.NewReconcileSweeper(
		paymentService, txRepo, lockStore,
		cfg.Sweeper.Interval, cfg.Sweeper.Window, cfg.Sweeper.AbandonAge, cfg.Sweeper.BatchSize,
	)

	// Initialize handlers.
	userHandler := handler.NewUserHandler(userRepo)
	propertyHandler := handler.NewPropertyHandler(listingRepo)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	transactionHandler := handler.NewTransactionHandler(paymentService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		UserHandler:        userHandler,
		PropertyHandler:    propertyHandler,
		PaymentHandler:     paymentHandler,
		TransactionHandler: transactionHandler,
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	workers := []func(context.Context){
		emailWorker.Run,
		sweeper.Run,
	}

	return server, workers
}
