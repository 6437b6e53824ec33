package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	billingapp "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/application/billing"
	domainBilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/cache"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/config"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/event"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/logger"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/scheduler"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/support"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/interfaces/http/handler"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/interfaces/http/middleware"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Entrevistia billing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// The free-tier ceiling is a tariff parameter, configurable per deployment
	domainBilling.FreeTierCredit = decimal.NewFromFloat(cfg.Billing.FreeTierCredit)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	chargeRepo := persistence.NewGormChargeRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	creditRepo := persistence.NewGormCreditGrantRepository(db.DB)
	markRepo := persistence.NewGormThresholdMarkRepository(db.DB)
	sessionRepo := persistence.NewGormEvaluationSessionRepository(db.DB)

	// Idempotency store: Redis when reachable, in-memory otherwise
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idemStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idemStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Initialize event bus and the serializer registry
	eventBus := event.NewInMemoryEventBus(log)
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)

	// Billing alerts: every overspend, threshold and escalation event becomes
	// an operator notification, delivered at most once per event
	notificationHandler := billingapp.NewBillingNotificationHandler(log)
	eventBus.Subscribe(event.NewIdempotentHandler(notificationHandler, idemStore, log))

	// Event journal: every published billing event lands on the billing_events
	// table in serialized form, queryable per account
	journal := event.NewJournal(persistence.NewGormEventLogRepository(db.DB), serializer, log)
	eventBus.Subscribe(journal)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services
	chargeService := billingapp.NewChargeService(
		db, chargeRepo, invoiceRepo, sessionRepo, creditRepo, eventBus, log)
	admissionService := billingapp.NewAdmissionService(
		chargeRepo, creditRepo, markRepo, idemStore, eventBus, log,
		shared.DefaultIdempotencyConfig())
	invoiceService := billingapp.NewInvoiceService(
		db, chargeRepo, invoiceRepo, log,
		billingapp.InvoiceServiceConfig{DueInterval: cfg.Billing.InvoiceDueInterval})
	sweepService := billingapp.NewSweepService(
		sessionRepo, chargeService, log,
		billingapp.SweepServiceConfig{
			GracePeriod: cfg.Billing.ChargeGracePeriod,
			BatchSize:   cfg.Billing.SweepBatchSize,
		})

	ticketClient := support.NewHTTPTicketClient(cfg.Support, log)
	reconciliationService := billingapp.NewReconciliationService(
		chargeRepo, sessionRepo, chargeService, nil, ticketClient, eventBus, log,
		billingapp.ReconciliationConfig{
			OrphanMatchWindow: cfg.Billing.OrphanMatchWindow,
			UnbilledScanLimit: cfg.Billing.SweepBatchSize * 20,
		})

	// Background schedulers
	sweepScheduler := scheduler.NewSweepScheduler(sweepService, log,
		scheduler.SweepSchedulerConfig{
			Enabled:    cfg.Scheduler.Enabled,
			Interval:   cfg.Scheduler.SweepInterval,
			JobTimeout: cfg.Scheduler.JobTimeout,
		})
	reconciliationScheduler := scheduler.NewReconciliationScheduler(
		reconciliationService, invoiceService, log,
		scheduler.ReconciliationSchedulerConfig{
			Enabled:            cfg.Scheduler.Enabled,
			ReconciliationHour: cfg.Scheduler.ReconciliationHour,
			OverdueCheckHour:   cfg.Scheduler.OverdueCheckHour,
			JobTimeout:         cfg.Scheduler.JobTimeout,
		})

	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()
	if err := sweepScheduler.Start(schedulerCtx); err != nil {
		log.Fatal("Failed to start sweep scheduler", zap.Error(err))
	}
	if err := reconciliationScheduler.Start(schedulerCtx); err != nil {
		log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
	}

	// HTTP engine and middleware chain
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// API routes
	middleware.SetupValidator()
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewBillingHandler(chargeService, admissionService, invoiceService, journal, log))
	r.Register(handler.NewOperationsHandler(
		reconciliationService, sweepService, invoiceService,
		middleware.SchedulerAuth(cfg.HTTP.SchedulerToken), log))
	r.Register(handler.NewSystemHandler())
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	schedulerCancel()
	if err := sweepScheduler.Stop(ctx); err != nil {
		log.Error("Error stopping sweep scheduler", zap.Error(err))
	}
	if err := reconciliationScheduler.Stop(ctx); err != nil {
		log.Error("Error stopping reconciliation scheduler", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
