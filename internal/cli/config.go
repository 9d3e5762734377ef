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
	"fmt"
	"time"

	"github.com/jeremyhahn/go-nsm/pkg/digest"
)

// Config holds CLI configuration
type Config struct {
	Server          string        // Server URL for remote mode
	SessionID       string        // Existing session to address in remote mode
	DigestAlgorithm string        // Digest algorithm for the in-memory device
	OutputFormat    string        // Output format: text, json, yaml
	Verbose         bool          // Verbose output
	Timeout         time.Duration // Request timeout for remote mode
}

// NewConfig creates a new CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		OutputFormat: "text",
		Timeout:      30 * time.Second,
	}
}

// IsRemote returns true when commands should talk to a server
func (c *Config) IsRemote() bool {
	return c.Server != ""
}

// Validate checks the configuration for inconsistent flag combinations
func (c *Config) Validate() error {
	if c.SessionID != "" && !c.IsRemote() {
		return fmt.Errorf("--session requires --server")
	}
	if c.DigestAlgorithm != "" {
		if _, err := digest.New(c.DigestAlgorithm); err != nil {
			return err
		}
	}
	switch c.OutputFormat {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format: %s", c.OutputFormat)
	}
	return nil
}
