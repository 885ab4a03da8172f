// Command smsprobe runs the SMS/MMS delivery-latency probe service: it
// dispatches test messages through the provider, receives delivery-receipt
// webhooks, and serves the test and batch endpoints.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kart-io/smsprobe/observability"
	"github.com/kart-io/smsprobe/pkg/archive"
	"github.com/kart-io/smsprobe/pkg/config"
	"github.com/kart-io/smsprobe/pkg/logger"
	"github.com/kart-io/smsprobe/pkg/probe"
	"github.com/kart-io/smsprobe/pkg/provider/bandwidth"
	transporthttp "github.com/kart-io/smsprobe/transport/http"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	appLogger := logger.New()
	if os.Getenv("SMSPROBE_DEBUG") != "" {
		appLogger = appLogger.LogMode(logger.Debug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry, err := observability.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		appLogger.Warn("Telemetry disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	sender, err := bandwidth.NewSender(bandwidth.Config{
		AccountID: cfg.AccountID,
		APIToken:  cfg.APIToken,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	}, appLogger)
	if err != nil {
		appLogger.Error("Failed to create provider", "error", err)
		os.Exit(1)
	}
	defer sender.Close()

	engineOpts := []probe.Option{
		probe.WithLogger(appLogger),
		probe.WithTelemetry(telemetry),
	}
	if cfg.Redis != nil {
		store, err := archive.NewRedisArchive(&archive.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		}, appLogger)
		if err != nil {
			appLogger.Error("Failed to connect result archive", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		engineOpts = append(engineOpts, probe.WithArchive(store))
		appLogger.Info("Result archive enabled", "addr", cfg.Redis.Addr)
	}

	engine := probe.NewEngine(cfg, sender, engineOpts...)

	server := transporthttp.NewServer(engine, &transporthttp.ServerConfig{Addr: cfg.HTTPAddr}, appLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			appLogger.Error("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		appLogger.Warn("HTTP shutdown failed", "error", err)
	}
}
