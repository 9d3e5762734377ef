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

package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-nsm/pkg/logging"
	"github.com/jeremyhahn/go-nsm/pkg/metrics"
	"github.com/jeremyhahn/go-nsm/pkg/ratelimit"
)

const (
	// DefaultPort is the default REST API port.
	DefaultPort = 8676

	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Config holds the REST server configuration.
type Config struct {
	// Host is the listen address. Empty binds all interfaces.
	Host string

	// Port is the listen port. Zero selects DefaultPort.
	Port int

	// Version is reported by the health endpoint.
	Version string

	// Registry tracks the device sessions served by this server. A
	// default registry is created when nil.
	Registry *Registry

	// Logger receives request and lifecycle logs.
	Logger *logging.Logger

	// Algorithm labels operation metrics with the configured digest
	// algorithm.
	Algorithm string

	// EnableMetrics mounts the Prometheus scrape endpoint at /metrics.
	EnableMetrics bool

	// RateLimit enables per-client request limiting when non-nil and
	// enabled.
	RateLimit *ratelimit.Config

	// ReadTimeout, WriteTimeout, and IdleTimeout configure the HTTP
	// server. Zero values select the defaults.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server is the REST API server for the device simulator.
type Server struct {
	config   *Config
	router   *chi.Mux
	server   *http.Server
	logger   *logging.Logger
	handlers *HandlerContext
	limiter  *ratelimit.Limiter
}

// NewServer creates a REST server from the given configuration.
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Version == "" {
		config.Version = "1.0.0"
	}
	if config.Logger == nil {
		config.Logger = logging.DefaultLogger()
	}
	if config.Registry == nil {
		config.Registry = NewRegistry(nil, 0)
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaultReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaultWriteTimeout
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = defaultIdleTimeout
	}

	s := &Server{
		config: config,
		logger: config.Logger,
	}
	if config.RateLimit != nil && config.RateLimit.Enabled {
		s.limiter = ratelimit.New(config.RateLimit)
	}
	s.handlers = NewHandlerContext(config.Version, config.Registry, config.Logger, config.Algorithm)
	s.setupRouter()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s, nil
}

// setupRouter configures all API routes and middleware.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(CorrelationMiddleware)
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)
	r.Use(CORSMiddleware)
	if s.limiter != nil {
		r.Use(ratelimit.Middleware(s.limiter))
	}

	r.Get("/health", s.handlers.HealthHandler)
	r.Head("/health", s.handlers.HealthHandler)
	r.Get("/health/live", s.handlers.LivenessHandler)
	r.Get("/health/ready", s.handlers.ReadinessHandler)
	r.Get("/health/startup", s.handlers.StartupHandler)

	if s.config.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.handlers.CreateSessionHandler)
		r.Get("/sessions", s.handlers.ListSessionsHandler)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handlers.GetSessionHandler)
			r.Delete("/", s.handlers.CloseSessionHandler)

			r.Post("/random", s.handlers.RandomHandler)
			r.Get("/digest", s.handlers.DigestHandler)
			r.Post("/attestation", s.handlers.AttestHandler)

			r.Get("/pcrs", s.handlers.ListPCRsHandler)
			r.Get("/pcrs/locked", s.handlers.LockedPCRsHandler)
			r.Post("/pcrs/lock", s.handlers.LockRangeHandler)
			r.Get("/pcrs/{slot}", s.handlers.DescribePCRHandler)
			r.Post("/pcrs/{slot}", s.handlers.ExtendPCRHandler)
			r.Post("/pcrs/{slot}/lock", s.handlers.LockPCRHandler)

			r.Get("/certificates", s.handlers.ListCertificatesHandler)
			r.Get("/certificates/{slot}", s.handlers.GetCertificateHandler)
			r.Put("/certificates/{slot}", s.handlers.SetCertificateHandler)
			r.Delete("/certificates/{slot}", s.handlers.RemoveCertificateHandler)
		})
	})

	s.router = r
}

// Start starts the REST server. It blocks until the server is stopped.
func (s *Server) Start() error {
	s.logger.Info("Starting REST server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the REST server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Stopping REST server")
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.server.Shutdown(ctx)
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.config.Port
}

// Handler returns the root HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the session registry served by this server.
func (s *Server) Registry() *Registry {
	return s.config.Registry
}

// SetHealthChecker sets the health checker used by the probe endpoints.
func (s *Server) SetHealthChecker(checker HealthChecker) {
	s.handlers.SetHealthChecker(checker)
}
