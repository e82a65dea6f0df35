// Package app wires the registry server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/nulzo/model-registry/internal/audit"
	"github.com/nulzo/model-registry/internal/catalog"
	"github.com/nulzo/model-registry/internal/config"
	"github.com/nulzo/model-registry/internal/gateway"
	"github.com/nulzo/model-registry/internal/inventory"
	"github.com/nulzo/model-registry/internal/platform/otel"
	"github.com/nulzo/model-registry/internal/server"
	"github.com/nulzo/model-registry/internal/store/cache"
	"github.com/nulzo/model-registry/internal/store/sqlite"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Server  *server.Server
	Gateway gateway.Service

	ingestor audit.Ingestor
	closers  []func(context.Context) error
}

// Build constructs every dependency. Close releases them.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	shutdown, err := otel.InitTracer(cfg.Tracing.Enabled, cfg.Tracing.ServiceName, logger, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	var c cache.CacheService = cache.NewMemoryCache()
	if cfg.Redis.Enabled {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		c = cache.NewRedisCache(client, "registry:")
		logger.Info("Catalog cache backed by redis", zap.String("addr", cfg.Redis.Addr))
	}

	inv, err := inventory.NewClient(inventory.Config{
		BaseURL:    cfg.Inventory.BaseURL,
		APIKey:     cfg.Inventory.APIKey,
		APIVersion: cfg.Inventory.APIVersion,
		Timeout:    cfg.Inventory.Timeout,
	}, nil, logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if inv.Legacy() {
		logger.Info("Inventory service speaks the legacy wire shape", zap.String("version", cfg.Inventory.APIVersion))
	}

	cat := catalog.NewService(inv, c, cfg.Catalog.TTL, logger.With(zap.String("component", "catalog")))

	var (
		recorder audit.Recorder = audit.Nop{}
		opts     []server.Option
	)
	if cfg.Audit.Enabled {
		repo, err := sqlite.NewSQLiteStorage(cfg.Audit.DSN, logger)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("audit store: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return repo.Close() })

		a.ingestor = audit.NewIngestor(logger.With(zap.String("component", "audit")), repo,
			audit.WithBatchSize(cfg.Audit.BatchSize),
			audit.WithFlushInterval(cfg.Audit.FlushInterval))
		a.ingestor.Start(ctx)
		recorder = a.ingestor

		opts = append(opts,
			server.WithAudit(audit.NewService(repo)),
			server.WithReadinessCheck("audit", func(ctx context.Context) error {
				_, err := repo.Audit().Recent(ctx, 1)
				return err
			}),
		)
	}

	a.Gateway = gateway.NewService(logger.With(zap.String("component", "gateway")), inv, cat, recorder)

	opts = append(opts, server.WithReadinessCheck("inventory", func(ctx context.Context) error {
		_, err := a.Gateway.Catalog(ctx)
		return err
	}))

	a.Server = server.New(cfg, logger, a.Gateway, opts...)
	return a, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("Model registry listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.Server.SweepLimiters(gctx, 10*time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.Logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close flushes the audit buffer and releases resources in reverse order.
func (a *App) Close(ctx context.Context) error {
	if a.ingestor != nil {
		a.ingestor.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
