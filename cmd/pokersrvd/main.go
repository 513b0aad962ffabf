package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/padpad2004/poker-platform/internal/auth"
	"github.com/padpad2004/poker-platform/internal/server"
	"github.com/padpad2004/poker-platform/internal/session"
	"github.com/padpad2004/poker-platform/internal/store"
)

// sweepInterval is how often idle tables are ticked for timeouts, sit-out
// removals and hand progression.
const sweepInterval = time.Second

var CLI struct {
	Config   string `short:"c" long:"config" default:"pokersrvd.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Database string `short:"d" long:"database" help:"Path to sqlite database (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Database != "" {
		cfg.Server.DatabasePath = CLI.Database
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	st, err := store.Open(cfg.Server.DatabasePath)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		kctx.Exit(1)
	}
	defer st.Close()

	var validator auth.Validator
	if secret := cfg.JWTSecret(); secret != "" {
		validator = auth.NewJWTValidator(secret)
	} else {
		logger.Warn("No JWT secret configured, all clients are spectators")
		validator = auth.NoopValidator{}
	}

	sessions := session.New(st, logger, nil)
	srv := server.New(cfg, st, sessions, validator, logger)

	logger.Info("Starting poker server",
		"addr", cfg.Addr(),
		"database", cfg.Server.DatabasePath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sessions.Sweep()
			case <-ctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		sessions.Shutdown()
		kctx.Exit(1)
	}

	logger.Info("Shutting down")
	sessions.Shutdown()
}
