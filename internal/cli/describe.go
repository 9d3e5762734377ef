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
	"os"

	"github.com/spf13/cobra"
)

// describeCmd prints the device state
var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Describe the device",
	Long: `Print the device identity, digest algorithm, slot counts, and
lock state. Against a server, pass --session to describe an existing
session.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			info, err := dev.Describe(ctx)
			if err != nil {
				return err
			}
			return printer.PrintDeviceInfo(info)
		})
	},
}
