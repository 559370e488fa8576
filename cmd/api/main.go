// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/kobopos/ledger-be/internal/adapters/db"
	"github.com/kobopos/ledger-be/internal/adapters/memory"
	redis_a "github.com/kobopos/ledger-be/internal/adapters/redis_adapter"
	"github.com/kobopos/ledger-be/internal/core/ports"
	"github.com/kobopos/ledger-be/internal/core/services"
	"github.com/kobopos/ledger-be/internal/handlers"
	"github.com/kobopos/ledger-be/internal/handlers/middleware"
	"github.com/kobopos/ledger-be/internal/pkg/config"
	"github.com/kobopos/ledger-be/internal/pkg/logger"
	"github.com/kobopos/ledger-be/internal/workers"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	slogger := logger.SetupLogger("debug", "json")

	slogger.Info("starting kobopos ledger service",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	slogger.Info("loading configuration")
	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("log_level", cfg.App.LogLevel),
	)

	ctx := context.Background()

	deps, err := initializeDependencies(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	server := setupHTTPServer(cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received",
			slog.String("signal", sig.String()),
		)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	database       *db.Database
	redisClient    *redis.Client
	cache          ports.CacheRepository
	asynqClient    *asynq.Client
	asynqInspector *asynq.Inspector
	store          ports.LedgerStore

	saleService   ports.SaleService
	periodService ports.PeriodService

	salesHandler     *handlers.SalesHandler
	periodsHandler   *handlers.PeriodsHandler
	purchasesHandler *handlers.PurchasesHandler
	productsHandler  *handlers.ProductsHandler
	healthHandler    *handlers.HealthHandler
}

func (d *dependencies) cleanup() {
	if d.database != nil {
		d.database.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, slogger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	var alerts ports.AlertPublisher

	switch cfg.Store.Backend {
	case "memory":
		// Standalone mode: no postgres, redis, or queue behind it.
		slogger.Warn("using in-memory ledger store, data will not survive restarts")
		deps.store = memory.NewStore(slogger)

	default:
		slogger.Info("connecting to database",
			slog.String("host", cfg.Database.Host),
			slog.String("database", cfg.Database.Name),
		)

		database, err := db.NewDatabase(ctx, &db.Config{
			Host:               cfg.Database.Host,
			Port:               cfg.Database.Port,
			User:               cfg.Database.User,
			Password:           cfg.Database.Password,
			Database:           cfg.Database.Name,
			SSLMode:            cfg.Database.SSLMode,
			MaxConnections:     cfg.Database.MaxConnections,
			MinConnections:     cfg.Database.MinConnections,
			MaxConnLifetime:    cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
			HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
			ConnectTimeout:     cfg.Database.ConnectTimeout,
			EnableQueryLogging: cfg.Database.EnableQueryLogging,
		}, slogger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		deps.database = database

		if !cfg.IsProduction() {
			if err := runMigrations(ctx, cfg, slogger); err != nil {
				slogger.Error("failed to run migrations", slog.String("error", err.Error()))
			}
		}

		slogger.Info("connecting to Redis",
			slog.String("host", cfg.Redis.Host),
			slog.String("port", cfg.Redis.Port),
		)

		redisClient := redis.NewClient(&redis.Options{
			Addr:            fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			Password:        cfg.Redis.Password,
			DB:              cfg.Redis.DB,
			MaxRetries:      cfg.Redis.MaxRetries,
			MinRetryBackoff: cfg.Redis.MinRetryBackoff,
			MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
			DialTimeout:     cfg.Redis.DialTimeout,
			ReadTimeout:     cfg.Redis.ReadTimeout,
			WriteTimeout:    cfg.Redis.WriteTimeout,
			PoolSize:        cfg.Redis.PoolSize,
			MinIdleConns:    cfg.Redis.MinIdleConns,
			PoolTimeout:     cfg.Redis.PoolTimeout,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		deps.redisClient = redisClient
		deps.cache = redis_a.NewCache(redisClient, slogger)

		slogger.Info("initializing Asynq client")
		asynqRedisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		}
		deps.asynqClient = asynq.NewClient(asynqRedisOpt)
		deps.asynqInspector = asynq.NewInspector(asynqRedisOpt)

		alerts = workers.NewPublisher(deps.asynqClient, deps.cache, slogger)
		deps.store = db.NewLedgerRepository(database, slogger)
	}

	// Services
	deps.saleService = services.NewSaleService(deps.store, alerts, slogger)
	deps.periodService = services.NewPeriodService(deps.store, slogger)

	// Handlers
	deps.salesHandler = handlers.NewSalesHandler(deps.saleService, slogger)
	deps.periodsHandler = handlers.NewPeriodsHandler(deps.periodService, slogger)
	deps.purchasesHandler = handlers.NewPurchasesHandler(deps.periodService, slogger)
	deps.productsHandler = handlers.NewProductsHandler(deps.store, slogger)
	deps.healthHandler = handlers.NewHealthHandler(
		deps.database,
		deps.redisClient,
		deps.asynqInspector,
		cfg,
		slogger,
	)

	slogger.Info("all dependencies initialized successfully")
	return deps, nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, slogger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	// Apply middleware in reverse order (innermost first)
	var handler http.Handler = mux
	handler = middleware.ContentTypeJSON(handler)

	if len(cfg.Security.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.Security.AllowedOrigins)(handler)
	}
	if cfg.Security.RateLimitRequests > 0 {
		handler = middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration)(handler)
	}

	if cfg.App.Environment != "test" {
		handler = middleware.Logger(slogger)(handler)
		handler = middleware.RequestID(handler)
		handler = middleware.Recovery(slogger)(handler)
	}

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(slogger.Handler(), slog.LevelError),
	}
}

func registerRoutes(mux *http.ServeMux, deps *dependencies) {
	apiV1 := "/api/v1"

	// Health and readiness
	mux.HandleFunc("GET /health", deps.healthHandler.Health)
	mux.HandleFunc("GET /ready", deps.healthHandler.Readiness)
	mux.HandleFunc("GET "+apiV1+"/health", deps.healthHandler.Health)

	// Sales
	mux.HandleFunc("POST "+apiV1+"/sales", deps.salesHandler.CreateSale)
	mux.HandleFunc("GET "+apiV1+"/sales", deps.salesHandler.ListSales)
	mux.HandleFunc("GET "+apiV1+"/sales/{id}", deps.salesHandler.GetSale)
	mux.HandleFunc("PATCH "+apiV1+"/sales/{id}/delivery", deps.salesHandler.UpdateDelivery)

	// Purchases (input VAT)
	mux.HandleFunc("POST "+apiV1+"/purchases", deps.purchasesHandler.CreatePurchase)

	// Tax periods
	mux.HandleFunc("POST "+apiV1+"/periods", deps.periodsHandler.CreatePeriod)
	mux.HandleFunc("GET "+apiV1+"/periods", deps.periodsHandler.ListPeriods)
	mux.HandleFunc("GET "+apiV1+"/periods/{id}", deps.periodsHandler.GetPeriod)
	mux.HandleFunc("POST "+apiV1+"/periods/{id}/close", deps.periodsHandler.ClosePeriod)

	// Products and stock
	mux.HandleFunc("PUT "+apiV1+"/products/{id}", deps.productsHandler.UpsertProduct)
	mux.HandleFunc("GET "+apiV1+"/products/{id}/stock", deps.productsHandler.GetStock)
}

func runMigrations(ctx context.Context, cfg *config.Config, slogger *slog.Logger) error {
	slogger.Info("running database migrations")

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		SourcePath:  cfg.Database.MigrationPath,
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}

	return db.RunMigrationsWithRetry(ctx, migrationConfig, slogger, 3)
}
