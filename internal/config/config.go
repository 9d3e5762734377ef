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

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-nsm/pkg/digest"
	"github.com/jeremyhahn/go-nsm/pkg/nsm"
	"github.com/jeremyhahn/go-nsm/pkg/ratelimit"
)

const (
	// DefaultPort is the default REST listener port
	DefaultPort = 8676

	// DefaultMaxSessions is the default cap on concurrently open sessions
	DefaultMaxSessions = 64

	// EnvPrefix is the prefix for environment variable overrides
	// (e.g. NSM_SERVER_PORT, NSM_LOGGING_LEVEL)
	EnvPrefix = "NSM"
)

// Template is a commented starter configuration, written by `nsm config init`.
const Template = `# go-nsm device server configuration
server:
  # Interface to bind. Empty binds all interfaces.
  host: ""
  port: 8676
  read_timeout: 15s
  write_timeout: 15s
  idle_timeout: 60s

logging:
  # debug, info, warn, error, or fatal
  level: info
  # text or json
  format: text

device:
  # mix256 (deterministic placeholder) or sha256
  digest_algorithm: mix256
  # Certificate arena budget in bytes. Negative disables the cap.
  max_cert_bytes: 1048576

sessions:
  # Upper bound on concurrently open sessions.
  max_sessions: 64

metrics:
  enabled: true

rate_limit:
  enabled: false
  requests_per_minute: 600
  burst: 100
`

// Config represents the complete server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Device    DeviceConfig    `yaml:"device" mapstructure:"device"`
	Sessions  SessionsConfig  `yaml:"sessions" mapstructure:"sessions"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig contains REST listener settings
type ServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// RateLimitConfig controls per-client request limiting
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DebugEnabled reports whether the configured level enables debug logging
func (l LoggingConfig) DebugEnabled() bool {
	return strings.EqualFold(l.Level, "debug")
}

// JSONFormat reports whether log records should be emitted as JSON
func (l LoggingConfig) JSONFormat() bool {
	return strings.EqualFold(l.Format, "json")
}

// DeviceConfig controls how device sessions are created
type DeviceConfig struct {
	DigestAlgorithm string `yaml:"digest_algorithm" mapstructure:"digest_algorithm"`
	MaxCertBytes    int    `yaml:"max_cert_bytes" mapstructure:"max_cert_bytes"`
}

// SessionsConfig controls the session registry
type SessionsConfig struct {
	MaxSessions int `yaml:"max_sessions" mapstructure:"max_sessions"`
}

// MetricsConfig controls Prometheus instrumentation
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// Default returns the built-in configuration used when no file or
// environment overrides are present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "",
			Port:         DefaultPort,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Device: DeviceConfig{
			DigestAlgorithm: digest.AlgorithmMix256,
			MaxCertBytes:    nsm.DefaultMaxCertBytes,
		},
		Sessions: SessionsConfig{
			MaxSessions: DefaultMaxSessions,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 600,
			Burst:             100,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and NSM_* environment variable overrides, in increasing precedence.
// An empty path skips the file layer entirely.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every key so environment
// overrides bind even without a config file
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("device.digest_algorithm", digest.AlgorithmMix256)
	v.SetDefault("device.max_cert_bytes", nsm.DefaultMaxCertBytes)
	v.SetDefault("sessions.max_sessions", DefaultMaxSessions)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_minute", 600)
	v.SetDefault("rate_limit.burst", 100)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, error, or fatal)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if _, err := digest.New(c.Device.DigestAlgorithm); err != nil {
		return fmt.Errorf("invalid digest algorithm: %s (must be %s or %s)",
			c.Device.DigestAlgorithm, digest.AlgorithmMix256, digest.AlgorithmSHA256)
	}

	if c.Sessions.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be at least 1: %d", c.Sessions.MaxSessions)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("rate_limit.requests_per_minute must be at least 1: %d",
			c.RateLimit.RequestsPerMinute)
	}

	return nil
}

// SessionParams translates the device section into session parameters
func (c *Config) SessionParams() (*nsm.Params, error) {
	d, err := digest.New(c.Device.DigestAlgorithm)
	if err != nil {
		return nil, err
	}
	return &nsm.Params{
		Digest:       d,
		MaxCertBytes: c.Device.MaxCertBytes,
	}, nil
}

// Limiter translates the rate limit section into limiter configuration,
// or nil when limiting is disabled
func (c *Config) Limiter() *ratelimit.Config {
	if !c.RateLimit.Enabled {
		return nil
	}
	return &ratelimit.Config{
		Enabled:           true,
		RequestsPerMinute: c.RateLimit.RequestsPerMinute,
		Burst:             c.RateLimit.Burst,
	}
}
