package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"parkops/internal/api"
	"parkops/internal/config"
	"parkops/internal/db"
	"parkops/internal/repository"
	"parkops/internal/service"
	"parkops/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.OTelServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	}, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var (
		tickets repository.TicketStore
		fees    repository.FeeStructureStore
		health  func(context.Context) error
	)
	switch cfg.Store {
	case config.StorePostgres:
		conn, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer conn.Close()
		tickets = repository.NewTicketRepository(conn)
		fees = repository.NewFeeStructureRepository(conn)
		health = func(ctx context.Context) error { return db.HealthCheck(ctx, conn) }
	case config.StoreMemory:
		logger.Warn("using in-memory store; tickets are lost on restart")
		tickets = repository.NewMemoryTicketStore()
		fees = repository.NewMemoryFeeStructureStore()
	}

	var notifier service.Notifier = service.NewLogNotifier(logger)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", "error", err)
		}
		notifier = service.NewRedisNotifier(client, cfg.NotifyChannelPrefix)
	}

	retry := service.DefaultRetryPolicy
	engine := service.NewLifecycleEngine(tickets, fees, logger, service.WithNotifier(notifier))
	scanner := service.NewOverdueScanner(tickets, engine, logger, service.ScannerConfig{
		BatchSize:   cfg.ScanBatchSize,
		Concurrency: cfg.ScanConcurrency,
		Retry:       retry,
	})
	admin := service.NewAdminService(tickets, fees)

	// Scheduled reconciliation over every org. A run still in flight when the
	// next tick fires makes that tick a no-op.
	job := scanJob(ctx, scanner, cfg.ScanTimeout, logger)
	c := cron.New(cron.WithChain(skipOverlap(logger)))
	if _, err := c.AddJob(cfg.ScanSchedule, job); err != nil {
		return fmt.Errorf("schedule overdue scan %q: %w", cfg.ScanSchedule, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	server := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.Port),
		Handler: api.NewRouter(api.Deps{
			Engine:      engine,
			Admin:       admin,
			Scanner:     scanner,
			Retry:       retry,
			JWTSecret:   cfg.JWTSecret,
			CORSOrigins: cfg.CORSOrigins,
			Health:      health,
			Logger:      logger,
			AccessLog:   os.Stdout,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr, "store", cfg.Store, "scan_schedule", cfg.ScanSchedule)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	conn, err := db.Open(db.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, err
	}
	migrator, err := db.NewMigrator(conn, cfg.DatabaseName)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
