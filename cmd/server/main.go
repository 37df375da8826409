package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	poapp "github.com/erp/backend/internal/application/procurement"
	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/infrastructure/config"
	"github.com/erp/backend/internal/infrastructure/ledger"
	"github.com/erp/backend/internal/infrastructure/logger"
	"github.com/erp/backend/internal/infrastructure/notification"
	"github.com/erp/backend/internal/infrastructure/persistence"
	"github.com/erp/backend/internal/infrastructure/telemetry"
	"github.com/erp/backend/internal/interfaces/http/handler"
	"github.com/erp/backend/internal/interfaces/http/middleware"
	"github.com/erp/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is stamped at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting purchase order processor",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
	)

	// Initialize database with GORM logging routed through zap
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	repo := persistence.NewGormPurchaseOrderRepository(db.DB)

	// Ledger gateway, optionally fronted by a Redis snapshot cache
	var gateway procurement.LedgerGateway
	demoGateway, err := ledger.NewDemoGateway(cfg.Ledger, log)
	if err != nil {
		log.Fatal("Failed to initialize ledger gateway", zap.Error(err))
	}
	gateway = demoGateway

	var redisClient *redis.Client
	if cfg.Ledger.CacheEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		gateway = ledger.NewCachedGateway(demoGateway, redisClient, cfg.Ledger.CacheTTL, log)
		log.Info("Ledger snapshot cache enabled",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Duration("ttl", cfg.Ledger.CacheTTL),
		)
	}

	// Notification channels: structured log always, SMTP when configured
	channels := []procurement.NotificationPort{notification.NewLogNotifier(log)}
	if cfg.Notification.Enabled {
		channels = append(channels, notification.NewSMTPNotifier(cfg.Notification, log))
		log.Info("SMTP notifications enabled",
			zap.String("host", cfg.Notification.SMTPHost),
			zap.Int("port", cfg.Notification.SMTPPort),
		)
	}
	notifier := notification.NewCompositeNotifier(channels...)

	// Domain services
	engine := procurement.NewReconciliationEngine(cfg.Processing.AmountTolerance)
	policy := procurement.NewThresholdPolicy(cfg.Processing.ApprovalThreshold)
	retrier := poapp.NewRetrier(poapp.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		MaxElapsed:  cfg.Retry.MaxElapsed,
		Jitter:      cfg.Retry.Jitter,
	})

	// Application services
	processService := poapp.NewProcessService(
		repo, gateway, engine, policy, notifier, retrier,
		cfg.Notification.ApproverEmail, log,
	)
	approvalService := poapp.NewApprovalService(repo, processService, log)
	queryService := poapp.NewQueryService(repo)

	// Metrics
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	meter := meterProvider.Meter("po-processor")

	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		log.Fatal("Failed to initialize business metrics", zap.Error(err))
	}
	processService.SetBusinessMetrics(businessMetrics)

	// Demo seed data
	if cfg.Database.SeedDemoData {
		if err := persistence.SeedDemoPurchaseOrders(context.Background(), repo, log); err != nil {
			log.Fatal("Failed to seed demo data", zap.Error(err))
		}
	}

	// HTTP handlers
	poHandler := handler.NewPurchaseOrderHandler(
		processService, approvalService, queryService, cfg.Processing.DefaultActor,
	)
	healthHandler := handler.NewHealthHandler(db, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ginEngine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. CORS - Handle cross-origin requests
	// 5. Metrics - Record request counts and latency
	ginEngine.Use(middleware.RequestID())
	ginEngine.Use(logger.Recovery(log))
	ginEngine.Use(logger.GinMiddleware(log))
	ginEngine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))

	metricsMiddleware, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to initialize HTTP metrics", zap.Error(err))
	}
	ginEngine.Use(metricsMiddleware)

	// Routes
	router.NewRouter(ginEngine).
		RegisterRoot(healthHandler).
		Register(poHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
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

	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Failed to shut down meter provider", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis client", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
