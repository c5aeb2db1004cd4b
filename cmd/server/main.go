package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	purchasingapp "github.com/erp/procurement/internal/application/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/cache"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/erp/procurement/internal/infrastructure/event"
	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/infrastructure/persistence"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/erp/procurement/internal/interfaces/http/handler"
	"github.com/erp/procurement/internal/interfaces/http/middleware"
	"github.com/erp/procurement/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting procurement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	lp, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := lp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	exportLevel, err := zapcore.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		exportLevel = zapcore.InfoLevel
	}
	log = lp.Bridge(log, exportLevel)

	procurementMetrics, err := telemetry.NewProcurementMetrics(mp.Meter("procurement"))
	if err != nil {
		log.Fatal("Failed to register procurement metrics", zap.Error(err))
	}

	// Database with a zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbSystem := "postgresql"
		if cfg.Database.Driver == config.DriverSQLite {
			dbSystem = "sqlite"
		}
		tracing := telemetry.NewDBTracing(dbSystem, cfg.Telemetry.DBSlowQueryThresh, false, log)
		if err := tracing.Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Draft, idempotency and lock stores
	stores, err := cache.NewStores(ctx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithLockWait(cfg.Procurement.TransitionLockWait),
	)
	if err != nil {
		log.Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing stores", zap.Error(err))
		}
	}()

	// Events go to the in-process bus and, when enabled, to Kafka
	bus := event.NewInMemoryEventBus(log)
	notifications := purchasingapp.NewOrderNotificationHandler(log)
	bus.Subscribe(notifications, notifications.EventTypes()...)
	publishers := []shared.EventPublisher{bus}
	if cfg.Kafka.Enabled {
		kafkaPublisher := event.NewKafkaPublisher(cfg.Kafka, log)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				log.Error("Error closing Kafka publisher", zap.Error(err))
			}
		}()
		publishers = append(publishers, kafkaPublisher)
	}
	publisher := event.NewFanOutPublisher(publishers...)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Repositories and services
	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	variantRepo := persistence.NewGormVariantRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)

	builder := purchasingapp.NewOrderBuilderService(stores.Drafts, orderRepo, supplierRepo, variantRepo,
		purchasingapp.BuilderConfig{
			NumberPrefix:   cfg.Procurement.OrderNumberPrefix,
			DefaultTaxRate: cfg.Procurement.DefaultTaxRate,
		}, log)
	builder.SetEventPublisher(publisher)

	transitions := purchasingapp.NewTransitionService(persistence.NewGormTransactionScope(db.DB), log)
	transitions.SetEventPublisher(publisher)
	transitions.SetIdempotencyStore(stores.Idempotency, cfg.Redis.IdempotencyTTL)
	transitions.SetMetrics(procurementMetrics)
	if stores.Locker != nil {
		transitions.SetLocker(stores.Locker)
	}

	queries := purchasingapp.NewOrderQueryService(orderRepo, movementRepo, purchasingapp.QueryConfig{
		DefaultPageSize: cfg.Procurement.DefaultPageSize,
		MaxPageSize:     cfg.Procurement.MaxPageSize,
	})

	// HTTP
	mode := gin.DebugMode
	if cfg.App.Env == "production" {
		mode = gin.ReleaseMode
	}
	engine := router.NewEngine(router.EngineConfig{
		Mode: mode,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
	}, log)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get underlying sql.DB", zap.Error(err))
	}
	engine.GET("/health", handler.NewHealthHandler(sqlDB).Check)

	r := router.NewRouter(engine)
	r.Register(router.NewDraftRoutes(handler.NewDraftHandler(builder)))
	r.Register(router.NewPurchaseOrderRoutes(handler.NewPurchaseOrderHandler(builder, transitions, queries)))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("base_path", r.BasePath()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
