package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stackmeter/stackmeter/internal/collector"
	"github.com/stackmeter/stackmeter/internal/config"
	"github.com/stackmeter/stackmeter/internal/server"
	"github.com/stackmeter/stackmeter/internal/storage/sqlite"
	"github.com/stackmeter/stackmeter/internal/store/gnocchi"
	"github.com/stackmeter/stackmeter/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("stackmeter", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	configPath := os.Getenv("STACKMETER_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	clientOpts := []gnocchi.ClientOption{}
	if cfg.Store.AuthToken != "" {
		clientOpts = append(clientOpts, gnocchi.WithAuthToken(cfg.Store.AuthToken))
	}
	if cfg.Store.Timeout > 0 {
		clientOpts = append(clientOpts, gnocchi.WithHTTPClient(&http.Client{Timeout: cfg.Store.Timeout}))
	}
	client := gnocchi.NewClient(cfg.Store.Endpoint, clientOpts...)

	coll := collector.New(client, client, cfg.Collect.Mappings(), logger)

	var archive server.Archive
	if cfg.Storage.Path != "" {
		store, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
		defer store.Close()
		archive = store
		logger.Info("archive storage enabled", slog.String("path", cfg.Storage.Path))
	}

	srv := server.New(cfg.Server.Port, logger)
	server.NewCollectHandler(coll, archive, logger).Register(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	case <-sigCh:
		logger.Info("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
