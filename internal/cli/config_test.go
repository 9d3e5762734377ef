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
	"testing"
	"time"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.OutputFormat != "text" {
		t.Errorf("OutputFormat = %v, want text", cfg.OutputFormat)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Server != "" {
		t.Errorf("Server should be empty by default, got %v", cfg.Server)
	}
	if cfg.SessionID != "" {
		t.Errorf("SessionID should be empty by default, got %v", cfg.SessionID)
	}
	if cfg.DigestAlgorithm != "" {
		t.Errorf("DigestAlgorithm should be empty by default, got %v", cfg.DigestAlgorithm)
	}
	if cfg.Verbose {
		t.Error("Verbose should be false by default")
	}
}

func TestConfig_IsRemote(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   bool
	}{
		{"empty server", "", false},
		{"http url", "http://localhost:8676", true},
		{"https url", "https://nsm.example.com", true},
		{"bare host", "localhost:8676", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Server = tt.server

			if got := cfg.IsRemote(); got != tt.want {
				t.Errorf("IsRemote() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"remote", func(c *Config) { c.Server = "http://localhost:8676" }, false},
		{"remote with session", func(c *Config) {
			c.Server = "http://localhost:8676"
			c.SessionID = "abc123"
		}, false},
		{"session without server", func(c *Config) { c.SessionID = "abc123" }, true},
		{"mix256 digest", func(c *Config) { c.DigestAlgorithm = "mix256" }, false},
		{"sha256 digest", func(c *Config) { c.DigestAlgorithm = "sha256" }, false},
		{"unknown digest", func(c *Config) { c.DigestAlgorithm = "md5" }, true},
		{"json output", func(c *Config) { c.OutputFormat = "json" }, false},
		{"yaml output", func(c *Config) { c.OutputFormat = "yaml" }, false},
		{"unknown output", func(c *Config) { c.OutputFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
