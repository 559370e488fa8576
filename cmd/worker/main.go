// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/kobopos/ledger-be/internal/adapters/db"
	"github.com/kobopos/ledger-be/internal/pkg/config"
	"github.com/kobopos/ledger-be/internal/pkg/logger"
	"github.com/kobopos/ledger-be/internal/workers"
)

func main() {
	slogger := logger.SetupLogger("debug", "json")
	slogger.Info("starting kobopos ledger worker")

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx := context.Background()

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
		slogger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	store := db.NewLedgerRepository(database, slogger)

	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}

	srv := asynq.NewServer(asynqRedisOpt, asynq.Config{
		Concurrency:     cfg.Asynq.Concurrency,
		Queues:          cfg.Asynq.Queues,
		StrictPriority:  cfg.Asynq.StrictPriority,
		ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
		Logger:          newAsynqLogger(slogger),
	})

	alertProcessor := workers.NewAlertProcessor(slogger)
	deliveriesProcessor := workers.NewDeliveriesProcessor(store, slogger)

	mux := asynq.NewServeMux()
	mux.HandleFunc(workers.TaskLowStock, alertProcessor.HandleLowStock)
	mux.HandleFunc(workers.TaskOverdueCheck, deliveriesProcessor.CheckOverdue)

	// Daily overdue sweep at 06:00.
	scheduler := asynq.NewScheduler(asynqRedisOpt, &asynq.SchedulerOpts{
		Logger: newAsynqLogger(slogger),
	})
	if _, err := scheduler.Register("0 6 * * *", asynq.NewTask(workers.TaskOverdueCheck, nil)); err != nil {
		slogger.Error("failed to register overdue check schedule", slog.String("error", err.Error()))
		os.Exit(1)
	}

	errs := make(chan error, 2)
	go func() {
		slogger.Info("worker server starting",
			slog.Int("concurrency", cfg.Asynq.Concurrency),
			slog.Any("queues", cfg.Asynq.Queues))
		errs <- srv.Run(mux)
	}()
	go func() {
		errs <- scheduler.Run()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil {
			slogger.Error("worker error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	scheduler.Shutdown()
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}

// asynqLogger adapts slog to asynq's logger interface.
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(l *slog.Logger) *asynqLogger {
	return &asynqLogger{logger: l.With(slog.String("component", "asynq"))}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
