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

	"github.com/spf13/cobra"
)

// certCmd represents the certificate command
var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Manage certificate slots",
	Long:  `Store, retrieve, and remove certificate data in the device's certificate slots`,
}

// certSetCmd stores certificate data in a slot
var certSetCmd = &cobra.Command{
	Use:   "set <slot> [data]",
	Short: "Store a certificate",
	Long: `Store certificate data in a slot, replacing any existing content.
Data is taken from the argument, or from --file. Pass --hex when the
data is hex encoded.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		slot, err := parseSlot(args[0])
		if err != nil {
			handleError(err)
			return
		}
		data, err := dataFromArgs(cmd, args, 1)
		if err != nil {
			handleError(err)
			return
		}
		printVerbose("storing %d byte(s) in certificate slot %d", len(data), slot)
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			if err := dev.SetCertificate(ctx, slot, data); err != nil {
				return err
			}
			return printer.PrintSuccess(fmt.Sprintf("Stored certificate in slot %d (%d bytes)", slot, len(data)))
		})
	},
}

// certGetCmd retrieves certificate data from a slot
var certGetCmd = &cobra.Command{
	Use:   "get <slot>",
	Short: "Get a certificate",
	Long: `Retrieve the certificate data stored in a slot. Pass --out to
write the raw bytes to a file instead of printing them.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		slot, err := parseSlot(args[0])
		if err != nil {
			handleError(err)
			return
		}
		outFile, _ := cmd.Flags().GetString("out")
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			data, err := dev.Certificate(ctx, slot)
			if err != nil {
				return err
			}
			if outFile != "" {
				if err := os.WriteFile(outFile, data, 0600); err != nil {
					return fmt.Errorf("failed to write %s: %w", outFile, err)
				}
				return printer.PrintSuccess(fmt.Sprintf("Wrote %d bytes to %s", len(data), outFile))
			}
			return printer.PrintCertificate(slot, data)
		})
	},
}

// certRemoveCmd clears a certificate slot
var certRemoveCmd = &cobra.Command{
	Use:   "remove <slot>",
	Short: "Remove a certificate",
	Long:  `Clear a certificate slot. Removing an empty slot fails.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		slot, err := parseSlot(args[0])
		if err != nil {
			handleError(err)
			return
		}
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			if err := dev.RemoveCertificate(ctx, slot); err != nil {
				return err
			}
			return printer.PrintSuccess(fmt.Sprintf("Removed certificate from slot %d", slot))
		})
	},
}

// certListCmd lists occupied certificate slots
var certListCmd = &cobra.Command{
	Use:   "list",
	Short: "List certificates",
	Long:  `List the occupied certificate slots and their sizes`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			list, err := dev.ListCertificates(ctx)
			if err != nil {
				return err
			}
			return printer.PrintCertificateList(list)
		})
	},
}

func init() {
	certSetCmd.Flags().Bool("hex", false, "treat data as hex encoded")
	certSetCmd.Flags().String("file", "", "read data from a file")
	certGetCmd.Flags().String("out", "", "write raw certificate bytes to a file")

	certCmd.AddCommand(certSetCmd)
	certCmd.AddCommand(certGetCmd)
	certCmd.AddCommand(certRemoveCmd)
	certCmd.AddCommand(certListCmd)
}
