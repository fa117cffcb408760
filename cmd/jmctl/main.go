package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/jobmatcher/jm-portal/internal/bootstrap"
	"github.com/jobmatcher/jm-portal/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx      context.Context
	Logger   *slog.Logger
	Out      io.Writer
	Prompt   *prompter
	Sessions *service.SessionService
	Auth     *service.AuthService
	Health   *service.HealthService
}

func main() {
	// Keep stdout for command output.
	logger := bootstrap.InitLoggerTo(os.Stderr, slog.LevelWarn)

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	if err := run(cmd, os.Args[2:], logger); err != nil {
		logger.Error("command failed", "command", cmdName, "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func run(cmd command, args []string, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.BuildServices(ctx, bootstrap.ServiceDeps{Config: &cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := services.Close(); closeErr != nil {
			logger.Warn("close services failed", "error", closeErr)
		}
	}()

	return cmd.run(&commandContext{
		Ctx:      ctx,
		Logger:   logger,
		Out:      os.Stdout,
		Prompt:   newTerminalPrompter(os.Stdin, os.Stderr),
		Sessions: services.Sessions,
		Auth:     services.Auth,
		Health:   services.Health,
	}, args)
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Log in with email and password (--role user|agent|admin)",
			run:         runLogin,
		},
		"register": {
			name:        "register",
			description: "Create an account and log in",
			run:         runRegister,
		},
		"logout": {
			name:        "logout",
			description: "Forget the stored session",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the stored session, verifying it once if needed",
			run:         runWhoami,
		},
		"refresh": {
			name:        "refresh",
			description: "Re-verify the stored token against the identity provider",
			run:         runRefresh,
		},
		"status": {
			name:        "status",
			description: "Ping every backend service",
			run:         runStatus,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: jmctl <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-10s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
