package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nulzo/model-registry/internal/app"
	"github.com/nulzo/model-registry/internal/config"
	"github.com/nulzo/model-registry/internal/platform/logger"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	log := logger.Initialize(logCfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to build application", zap.Error(err))
	}

	log.Info("Starting model registry",
		zap.String("env", cfg.Server.Env),
		zap.String("inventory", cfg.Inventory.BaseURL),
		zap.Duration("catalog_ttl", cfg.Catalog.TTL),
		zap.Bool("audit", cfg.Audit.Enabled),
	)

	runErr := a.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		log.Error("Shutdown finished with errors", zap.Error(err))
	}

	if runErr != nil {
		log.Fatal("Server failed", zap.Error(runErr))
	}
}
