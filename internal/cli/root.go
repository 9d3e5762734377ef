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
)

var (
	// Global configuration
	globalConfig *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nsm",
	Short: "go-nsm CLI - Simulated security module tool",
	Long: `go-nsm CLI provides a command-line interface for the simulated
security module: measurement registers, certificate slots, random
bytes, and attestation documents.

Without --server, commands run against a fresh in-memory device that
lives for a single invocation. Point --server at a running go-nsm
server (see "nsm serve") to work with long-lived sessions instead,
passing --session to address one by module ID.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize global config
	globalConfig = NewConfig()

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&globalConfig.Server, "server", "",
		"server URL (http://host:port); empty runs against an in-memory device")
	rootCmd.PersistentFlags().StringVar(&globalConfig.SessionID, "session", "",
		"module ID of an existing server session (requires --server)")
	rootCmd.PersistentFlags().StringVar(&globalConfig.DigestAlgorithm, "digest", "",
		"digest algorithm for the in-memory device (mix256, sha256)")
	rootCmd.PersistentFlags().StringVarP(&globalConfig.OutputFormat, "output", "o", "text",
		"output format (text, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&globalConfig.Verbose, "verbose", "v", false,
		"verbose output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(randomCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(attestCmd)
	rootCmd.AddCommand(pcrCmd)
	rootCmd.AddCommand(certCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// getConfig returns the global configuration
func getConfig() *Config {
	return globalConfig
}

// handleError prints an error and exits with code 1
func handleError(err error) {
	printer := NewPrinter(globalConfig.OutputFormat, os.Stderr)
	if printErr := printer.PrintError(err); printErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

// printVerbose prints a message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if globalConfig.Verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] "+format+"\n", args...)
	}
}
