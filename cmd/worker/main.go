// Command worker consumes access records from the asynq queue and stores them
// in PostgreSQL.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/VaultGate/internal/config"
	"github.com/dharsanguruparan/VaultGate/internal/daemon"
	"github.com/dharsanguruparan/VaultGate/internal/database"
	"github.com/dharsanguruparan/VaultGate/internal/logr"
	"github.com/dharsanguruparan/VaultGate/internal/repository"
	"github.com/dharsanguruparan/VaultGate/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadWithoutKeys()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		return errors.New("VAULTGATE_REDIS_ADDR and VAULTGATE_DATABASE_URL are required")
	}
	logger, err := logr.New(logr.Config{Verbosity: cfg.LogVerbosity, Format: cfg.LogFormat})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	repo := repository.NewAccessRepository(pool)

	server := asynq.NewServer(daemon.RedisOpt(cfg), asynq.Config{
		Concurrency: cfg.AuditWorkers,
	})
	processor := worker.NewProcessor(logger.WithName("worker"), repo)

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info("worker started", "redis", cfg.RedisAddr, "concurrency", cfg.AuditWorkers)
	return server.Run(processor.Handler())
}
