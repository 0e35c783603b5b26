// Package daemon assembles the VaultGate server from configuration: object
// backend, audit sink, dispatcher and HTTP server.
package daemon

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/VaultGate/internal/config"
	"github.com/dharsanguruparan/VaultGate/internal/database"
	"github.com/dharsanguruparan/VaultGate/internal/processing"
	"github.com/dharsanguruparan/VaultGate/internal/queue"
	"github.com/dharsanguruparan/VaultGate/internal/repository"
	"github.com/dharsanguruparan/VaultGate/internal/s3storage"
	"github.com/dharsanguruparan/VaultGate/internal/server"
	"github.com/dharsanguruparan/VaultGate/internal/signing"
)

// Run serves HTTP until ctx is cancelled, then flushes pending audit records.
func Run(ctx context.Context, logger logr.Logger, cfg *config.Config) error {
	objects, err := NewObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	sink, closeSink, err := NewAuditSink(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	dispatcher := processing.New(logger.WithName("audit"), sink, cfg.AuditWorkers)
	srv := server.New(server.Options{
		Config:   cfg,
		Verifier: signing.NewVerifier(cfg.Keys),
		Objects:  objects,
		Recorder: dispatcher,
		Logger:   logger.WithName("http"),
	})

	return serveThenFlush(ctx, srv.Serve, dispatcher)
}

// serveThenFlush runs serve until ctx is cancelled and it returns. The
// dispatcher outlives serve, so records submitted by requests still in flight
// during shutdown are delivered before it drains and exits.
func serveThenFlush(ctx context.Context, serve func(context.Context) error, dispatcher *processing.Dispatcher) error {
	dctx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	dispatcher.Start(dctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stopDispatch()
		return serve(gctx)
	})
	g.Go(func() error {
		<-dctx.Done()
		dispatcher.Wait()
		return nil
	})
	return g.Wait()
}

// NewObjectStore returns the S3 backend when an endpoint is configured and
// nil otherwise, in which case only /resource is served.
func NewObjectStore(ctx context.Context, cfg *config.Config) (server.ObjectStore, error) {
	if cfg.S3Endpoint == "" {
		return nil, nil
	}
	store, err := s3storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return store, nil
}

// NewAuditSink picks where access records go: the asynq queue when Redis is
// configured, PostgreSQL when only a database is configured, else the log.
// The returned func releases the sink's connections.
func NewAuditSink(ctx context.Context, logger logr.Logger, cfg *config.Config) (processing.Sink, func(), error) {
	switch {
	case cfg.RedisAddr != "":
		client := asynq.NewClient(RedisOpt(cfg))
		logger.Info("audit records queued", "redis", cfg.RedisAddr)
		return queue.NewPublisher(client), func() { _ = client.Close() }, nil
	case cfg.DatabaseURL != "":
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("audit records stored in database")
		return repository.NewAccessRepository(pool), pool.Close, nil
	default:
		return processing.LogSink{Logger: logger.WithName("audit")}, func() {}, nil
	}
}

// RedisOpt builds the asynq connection options from cfg.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
