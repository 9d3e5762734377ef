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
	"strconv"

	"github.com/spf13/cobra"
)

// randomCmd draws random bytes from the device
var randomCmd = &cobra.Command{
	Use:   "random <length>",
	Short: "Get random bytes",
	Long:  `Draw the requested number of random bytes from the device and print them as hex`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		length, err := strconv.Atoi(args[0])
		if err != nil {
			handleError(fmt.Errorf("invalid length %q: %w", args[0], err))
			return
		}
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			data, err := dev.Random(ctx, length)
			if err != nil {
				return err
			}
			return printer.PrintRandom(data)
		})
	},
}
