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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeremyhahn/go-nsm/internal/config"
	"github.com/jeremyhahn/go-nsm/internal/rest"
	"github.com/jeremyhahn/go-nsm/pkg/health"
	"github.com/jeremyhahn/go-nsm/pkg/logging"
	"github.com/jeremyhahn/go-nsm/pkg/metrics"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		fmt.Printf("go-nsm device server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	// Check for config file override via environment
	if envConfig := os.Getenv("NSM_CONFIG"); envConfig != "" {
		*configPath = envConfig
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	var logger *logging.Logger
	if cfg.Logging.JSONFormat() {
		logger = logging.NewJSONLogger(cfg.Logging.DebugEnabled())
	} else {
		logger = logging.NewLogger(cfg.Logging.DebugEnabled())
	}

	logger.Info("Starting device server",
		"version", version,
		"config", *configPath,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"digest", cfg.Device.DigestAlgorithm,
		"max_sessions", cfg.Sessions.MaxSessions)

	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	// Build the session registry from the device section
	params, err := cfg.SessionParams()
	if err != nil {
		logger.FatalError(err)
	}
	params.Logger = logger
	registry := rest.NewRegistry(params, cfg.Sessions.MaxSessions)

	server, err := rest.NewServer(&rest.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		Version:       version,
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
		logger.FatalError(err)
	}

	checker := health.NewChecker()
	checker.RegisterCheck("sessions", registry.Check)
	server.SetHealthChecker(checker)

	collectorCtx, collectorCancel := context.WithCancel(context.Background())
	defer collectorCancel()
	var collector *metrics.ResourceCollector
	if cfg.Metrics.Enabled {
		collector = metrics.StartResourceCollector(collectorCtx, 30*time.Second)
	}

	// Setup signal handler for graceful shutdown
	shutdownCtx := setupSignalHandler(logger)

	// Start the server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()
	checker.MarkStarted()

	logger.Info("Device server started", "port", cfg.Server.Port)

	// Wait for shutdown signal or error
	select {
	case <-shutdownCtx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		logger.Errorf("server error: %v", err)
	}

	// Gracefully shutdown
	shutdownTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownTimeout); err != nil {
		logger.Errorf("error during server shutdown: %v", err)
	}
	if collector != nil {
		collector.Stop()
	}
	registry.CloseAll()

	logger.Info("Device server stopped")
}

// setupSignalHandler sets up signal handling for graceful shutdown
func setupSignalHandler(logger *logging.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-signalCh
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
	}()

	return ctx
}
