package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jobmatcher/jm-portal/config"
	"github.com/jobmatcher/jm-portal/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logStartupInfo(ctx, logger, &cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.BuildServices(ctx, bootstrap.ServiceDeps{Config: &cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close services failed", "error", cerr)
		}
	}()

	// Pages are gated on the restored session while hydration runs.
	go func() {
		res := services.Sessions.Start(ctx)
		logger.InfoContext(ctx, "session hydration finished",
			"outcome", res.Outcome,
			"role", res.Session.Role,
		)
	}()

	server := bootstrap.StartHTTPServer(&bootstrap.HTTPServerConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})

	<-ctx.Done()
	logger.Info("shutting down services...")

	return bootstrap.ShutdownHTTPServer(bootstrap.ShutdownConfig{
		Context: context.Background(),
		Server:  server,
		Timeout: cfg.HTTP.ShutdownTimeout,
		Logger:  logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting jm-portal",
		"auth_mode", cfg.Auth.Mode,
		"session_store", cfg.Storage.Kind,
		"http_addr", cfg.HTTP.Addr,
		"auth_url", cfg.Backends.AuthURL,
		"dev", cfg.IsDev,
	)
}
