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
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-nsm/internal/config"
)

// configCmd groups configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage server configuration",
	Long:  `Helpers for the server configuration consumed by "nsm serve"`,
}

// configInitCmd writes a starter configuration file
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter configuration file",
	Long: `Write a commented starter configuration to the given path
(default nsm.yaml). Refuses to overwrite an existing file unless
--force is set.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "nsm.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if !force {
			if _, err := os.Stat(path); err == nil {
				handleError(fmt.Errorf("%s already exists (use --force to overwrite)", path))
				return
			}
		}
		if err := os.WriteFile(path, []byte(config.Template), 0600); err != nil {
			handleError(fmt.Errorf("failed to write %s: %w", path, err))
			return
		}
		if err := printer.PrintSuccess(fmt.Sprintf("Wrote configuration template to %s", path)); err != nil {
			handleError(err)
		}
	},
}

// configShowCmd prints the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Load the configuration the same way "nsm serve" does and print
the effective values after defaults and environment overrides.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		configFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configFile)
		if err != nil {
			handleError(err)
			return
		}
		view := map[string]interface{}{
			"server": map[string]interface{}{
				"host":          cfg.Server.Host,
				"port":          cfg.Server.Port,
				"read_timeout":  cfg.Server.ReadTimeout.String(),
				"write_timeout": cfg.Server.WriteTimeout.String(),
				"idle_timeout":  cfg.Server.IdleTimeout.String(),
			},
			"logging": map[string]interface{}{
				"level":  cfg.Logging.Level,
				"format": cfg.Logging.Format,
			},
			"device": map[string]interface{}{
				"digest_algorithm": cfg.Device.DigestAlgorithm,
				"max_cert_bytes":   cfg.Device.MaxCertBytes,
			},
			"sessions": map[string]interface{}{
				"max_sessions": cfg.Sessions.MaxSessions,
			},
			"metrics": map[string]interface{}{
				"enabled": cfg.Metrics.Enabled,
			},
			"rate_limit": map[string]interface{}{
				"enabled":             cfg.RateLimit.Enabled,
				"requests_per_minute": cfg.RateLimit.RequestsPerMinute,
				"burst":               cfg.RateLimit.Burst,
			},
		}
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		switch getConfig().OutputFormat {
		case "json":
			err = printer.printJSON(view)
		default:
			err = printer.printYAML(view)
		}
		if err != nil {
			handleError(err)
		}
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configShowCmd.Flags().String("config", "", "path to a YAML configuration file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
