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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeremyhahn/go-nsm/pkg/digest"
	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

// TestLoad_Defaults tests loading with no file and no environment overrides
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	want := Default()
	if cfg.Server.Port != want.Server.Port {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, want.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %v, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %v, want text", cfg.Logging.Format)
	}
	if cfg.Device.DigestAlgorithm != digest.AlgorithmMix256 {
		t.Errorf("Device.DigestAlgorithm = %v, want %v", cfg.Device.DigestAlgorithm, digest.AlgorithmMix256)
	}
	if cfg.Device.MaxCertBytes != nsm.DefaultMaxCertBytes {
		t.Errorf("Device.MaxCertBytes = %v, want %v", cfg.Device.MaxCertBytes, nsm.DefaultMaxCertBytes)
	}
	if cfg.Sessions.MaxSessions != DefaultMaxSessions {
		t.Errorf("Sessions.MaxSessions = %v, want %v", cfg.Sessions.MaxSessions, DefaultMaxSessions)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = true, want false")
	}
	if cfg.RateLimit.RequestsPerMinute != 600 {
		t.Errorf("RateLimit.RequestsPerMinute = %v, want 600", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.RateLimit.Burst != 100 {
		t.Errorf("RateLimit.Burst = %v, want 100", cfg.RateLimit.Burst)
	}
}

// TestLoad_Success tests successful loading of a valid config file
func TestLoad_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "localhost"
  port: 9090
  read_timeout: 30s
  write_timeout: 45s
  idle_timeout: 2m

logging:
  level: "debug"
  format: "json"

device:
  digest_algorithm: "sha256"
  max_cert_bytes: 4096

sessions:
  max_sessions: 8

metrics:
  enabled: false
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Host != "localhost" {
		t.Errorf("Server.Host = %v, want localhost", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %v, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("Server.IdleTimeout = %v, want 2m", cfg.Server.IdleTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %v, want json", cfg.Logging.Format)
	}
	if cfg.Device.DigestAlgorithm != digest.AlgorithmSHA256 {
		t.Errorf("Device.DigestAlgorithm = %v, want sha256", cfg.Device.DigestAlgorithm)
	}
	if cfg.Device.MaxCertBytes != 4096 {
		t.Errorf("Device.MaxCertBytes = %v, want 4096", cfg.Device.MaxCertBytes)
	}
	if cfg.Sessions.MaxSessions != 8 {
		t.Errorf("Sessions.MaxSessions = %v, want 8", cfg.Sessions.MaxSessions)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
}

// TestLoad_PartialFile tests that omitted sections keep their defaults
func TestLoad_PartialFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 7000
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %v, want 7000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %v, want default info", cfg.Logging.Level)
	}
	if cfg.Sessions.MaxSessions != DefaultMaxSessions {
		t.Errorf("Sessions.MaxSessions = %v, want default %v", cfg.Sessions.MaxSessions, DefaultMaxSessions)
	}
}

// TestLoad_FileNotFound tests loading a nonexistent config file
func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}

// TestLoad_InvalidYAML tests loading a malformed config file
func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("server: [not: valid"), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

// TestLoad_EnvOverrides tests environment variable overrides
func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NSM_SERVER_PORT", "9999")
	t.Setenv("NSM_LOGGING_LEVEL", "warn")
	t.Setenv("NSM_DEVICE_DIGEST_ALGORITHM", "sha256")
	t.Setenv("NSM_SERVER_READ_TIMEOUT", "5s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %v, want 9999", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %v, want warn", cfg.Logging.Level)
	}
	if cfg.Device.DigestAlgorithm != digest.AlgorithmSHA256 {
		t.Errorf("Device.DigestAlgorithm = %v, want sha256", cfg.Device.DigestAlgorithm)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
}

// TestLoad_EnvOverridesFile tests that environment beats the config file
func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 7000
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	t.Setenv("NSM_SERVER_PORT", "7001")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 7001 {
		t.Errorf("Server.Port = %v, want env override 7001", cfg.Server.Port)
	}
}

// TestLoad_Template tests that the starter template matches the defaults
func TestLoad_Template(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte(Template), 0644); err != nil {
		t.Fatalf("Failed to write template file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	want := Default()
	if *cfg != *want {
		t.Errorf("Template config = %+v, want defaults %+v", cfg, want)
	}
}

// TestValidate tests configuration validation rules
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "zero read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "uppercase log level accepted",
			mutate:  func(c *Config) { c.Logging.Level = "DEBUG" },
			wantErr: false,
		},
		{
			name:    "invalid digest algorithm",
			mutate:  func(c *Config) { c.Device.DigestAlgorithm = "md5" },
			wantErr: true,
		},
		{
			name:    "sha256 digest algorithm accepted",
			mutate:  func(c *Config) { c.Device.DigestAlgorithm = "sha256" },
			wantErr: false,
		},
		{
			name:    "negative cert budget accepted",
			mutate:  func(c *Config) { c.Device.MaxCertBytes = -1 },
			wantErr: false,
		},
		{
			name:    "zero max sessions",
			mutate:  func(c *Config) { c.Sessions.MaxSessions = 0 },
			wantErr: true,
		},
		{
			name: "rate limit enabled",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
			},
			wantErr: false,
		},
		{
			name: "rate limit enabled without rate",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.RequestsPerMinute = 0
			},
			wantErr: true,
		},
		{
			name: "rate limit disabled ignores rate",
			mutate: func(c *Config) {
				c.RateLimit.RequestsPerMinute = 0
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestSessionParams tests translation of the device section
func TestSessionParams(t *testing.T) {
	cfg := Default()
	cfg.Device.DigestAlgorithm = "sha256"
	cfg.Device.MaxCertBytes = 2048

	params, err := cfg.SessionParams()
	if err != nil {
		t.Fatalf("SessionParams() error = %v, want nil", err)
	}
	if params.Digest.Algorithm() != digest.AlgorithmSHA256 {
		t.Errorf("Digest.Algorithm() = %v, want sha256", params.Digest.Algorithm())
	}
	if params.MaxCertBytes != 2048 {
		t.Errorf("MaxCertBytes = %v, want 2048", params.MaxCertBytes)
	}

	cfg.Device.DigestAlgorithm = "md5"
	if _, err := cfg.SessionParams(); err == nil {
		t.Error("SessionParams() error = nil, want error for unknown algorithm")
	}
}

// TestLimiter tests translation of the rate limit section
func TestLimiter(t *testing.T) {
	cfg := Default()
	if lc := cfg.Limiter(); lc != nil {
		t.Errorf("Limiter() = %+v, want nil when disabled", lc)
	}

	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerMinute = 120
	cfg.RateLimit.Burst = 10

	lc := cfg.Limiter()
	if lc == nil {
		t.Fatal("Limiter() = nil, want config when enabled")
	}
	if !lc.Enabled {
		t.Error("Limiter().Enabled = false, want true")
	}
	if lc.RequestsPerMinute != 120 {
		t.Errorf("Limiter().RequestsPerMinute = %v, want 120", lc.RequestsPerMinute)
	}
	if lc.Burst != 10 {
		t.Errorf("Limiter().Burst = %v, want 10", lc.Burst)
	}
}

// TestLoggingHelpers tests the logging convenience accessors
func TestLoggingHelpers(t *testing.T) {
	l := LoggingConfig{Level: "DEBUG", Format: "JSON"}
	if !l.DebugEnabled() {
		t.Error("DebugEnabled() = false, want true for DEBUG")
	}
	if !l.JSONFormat() {
		t.Error("JSONFormat() = false, want true for JSON")
	}

	l = LoggingConfig{Level: "info", Format: "text"}
	if l.DebugEnabled() {
		t.Error("DebugEnabled() = true, want false for info")
	}
	if l.JSONFormat() {
		t.Error("JSONFormat() = true, want false for text")
	}
}
