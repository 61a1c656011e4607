package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/dataprep/internal/config"
	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/loader"
	"github.com/JonMunkholm/dataprep/internal/logging"
	"github.com/JonMunkholm/dataprep/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"load_max_concurrent", cfg.Load.MaxConcurrent,
		"load_max_file_size", cfg.Load.MaxFileSize,
		"session_ttl", cfg.Session.TTL,
		"session_max", cfg.Session.MaxSessions,
		"api_key_required", cfg.Security.RequireAPIKey,
	)

	service := core.NewService(core.Options{
		Load: loader.Options{
			Delimiter:      cfg.Load.DelimiterRune(),
			DetectEncoding: cfg.Load.DetectEncoding,
			NAValues:       cfg.Load.NAValues,
			MaxBytes:       cfg.Load.MaxFileSize,
		},
		SessionTTL:         cfg.Session.TTL,
		MaxSessions:        cfg.Session.MaxSessions,
		MaxConcurrentLoads: cfg.Load.MaxConcurrent,
		MaxLoadWait:        cfg.Load.MaxWaitTime,
	})
	defer service.Close()

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSweeper(jobCtx, cfg.Session.SweepInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
