// Copyright (c) 2026 Jeremy Hahn
// Copyright (c) 2026 Automate The Things, LLC
//
// This file is part of go-nsm.
//
// go-nsm is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-nsm/internal/config"
	"github.com/jeremyhahn/go-nsm/internal/rest"
	"github.com/jeremyhahn/go-nsm/pkg/health"
	"github.com/jeremyhahn/go-nsm/pkg/logging"
	"github.com/jeremyhahn/go-nsm/pkg/metrics"
)

// serveCmd runs the device server in the foreground
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the device server",
	Long: `Run the go-nsm REST server in the foreground until interrupted.
Configuration comes from --config, NSM_* environment variables, and
built-in defaults, in decreasing precedence.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		configFile, _ := cmd.Flags().GetString("config")
		if err := runServer(configFile); err != nil {
			handleError(err)
		}
	},
}

func init() {
	serveCmd.Flags().String("config", "", "path to a YAML configuration file")
}

func runServer(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	var logger *logging.Logger
	if cfg.Logging.JSONFormat() {
		logger = logging.NewJSONLogger(cfg.Logging.DebugEnabled())
	} else {
		logger = logging.NewLogger(cfg.Logging.DebugEnabled())
	}

	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	params, err := cfg.SessionParams()
	if err != nil {
		return err
	}
	params.Logger = logger
	registry := rest.NewRegistry(params, cfg.Sessions.MaxSessions)

	server, err := rest.NewServer(&rest.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		Version:       Version,
		Registry:      registry,
		Logger:        logger,
		Algorithm:     cfg.Device.DigestAlgorithm,
		EnableMetrics: cfg.Metrics.Enabled,
		RateLimit:     cfg.Limiter(),
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
	})
	if err != nil {
		return err
	}

	checker := health.NewChecker()
	checker.RegisterCheck("sessions", registry.Check)
	server.SetHealthChecker(checker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var collector *metrics.ResourceCollector
	if cfg.Metrics.Enabled {
		collector = metrics.StartResourceCollector(ctx, 30*time.Second)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting device server",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"digest", cfg.Device.DigestAlgorithm)
		errCh <- server.Start()
	}()
	checker.MarkStarted()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Errorf("failed to stop server: %v", err)
	}
	if collector != nil {
		collector.Stop()
	}
	registry.CloseAll()
	logger.Info("Server stopped")
	return nil
}
