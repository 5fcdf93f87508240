// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mamiland/mamiland/internal/auth"
	authpg "github.com/mamiland/mamiland/internal/auth/postgres"
	"github.com/mamiland/mamiland/internal/config"
	"github.com/mamiland/mamiland/internal/httpapi"
	"github.com/mamiland/mamiland/internal/logging"
	"github.com/mamiland/mamiland/internal/observability"
	"github.com/mamiland/mamiland/internal/store"
)

// serveConfig holds configuration for the serve command.
type serveConfig struct {
	addr        string
	metricsAddr string
	logFormat   string
}

// Validate checks that the configuration is valid.
func (cfg *serveConfig) Validate() error {
	if cfg.addr == "" {
		return fmt.Errorf("addr is required")
	}
	if cfg.logFormat != "json" && cfg.logFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", cfg.logFormat)
	}
	return nil
}

// Default values for serve command flags.
const (
	defaultAPIAddr     = ":8080"
	defaultMetricsAddr = "127.0.0.1:9100"
	defaultLogFormat   = "json"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server which handles authentication, profile
updates, and administrative access code management.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", defaultAPIAddr, "API listen address")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().StringVar(&cfg.logFormat, "log-format", defaultLogFormat, "log format (json or text)")

	return cmd
}

func runServe(ctx context.Context, cfg *serveConfig, cmd *cobra.Command) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault("mamiland", version, cfg.logFormat)
	logger := slog.Default()

	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("starting api process",
		"addr", cfg.addr,
		"env", appCfg.Env,
		"log_format", cfg.logFormat,
	)

	st, err := store.Open(ctx, appCfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer st.Close()

	slog.Info("connected to database")

	pool := st.Pool()
	users := authpg.NewUserRepository(pool)
	admins := authpg.NewAdminRepository(pool)
	codeRepo := authpg.NewAccessCodeRepository(pool)
	bootstrapStore := authpg.NewBootstrapStore(pool)

	hasher := auth.NewArgon2idHasher()

	tokens, err := auth.NewTokenService(appCfg.TokenSecret)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	codes, err := auth.NewAccessCodeService(codeRepo)
	if err != nil {
		return fmt.Errorf("failed to create access code service: %w", err)
	}

	bootstrap, err := auth.NewBootstrap(bootstrapStore, hasher, appCfg.AdminSeedPassword, logger)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap: %w", err)
	}

	gateway, err := auth.NewGateway(users, admins, codes, hasher, tokens, bootstrap, logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer *observability.Server
	handlerOpts := []httpapi.HandlerOption{
		httpapi.WithSecureCookies(appCfg.IsProduction()),
	}
	if cfg.metricsAddr != "" {
		obsServer = observability.NewServer(cfg.metricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return fmt.Errorf("failed to start observability server: %w", obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		handlerOpts = append(handlerOpts, httpapi.WithMetrics(obsServer.Metrics()))
	}

	handler, err := httpapi.NewHandler(gateway, users, codes, tokens, logger, handlerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create api handler: %w", err)
	}

	apiServer := httpapi.NewServer(cfg.addr, handler.Routes())
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer)
		return fmt.Errorf("failed to start api server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("API server started")
	slog.Info("api process ready", "addr", apiServer.Addr())

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// stopObservability stops the observability server during startup
// cleanup, tolerating a nil server.
func stopObservability(s *observability.Server) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors watches a server error channel and cancels the
// process context if an error arrives.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
