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
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// pcrCmd represents the measurement register command
var pcrCmd = &cobra.Command{
	Use:   "pcr",
	Short: "Manage measurement registers",
	Long:  `Read, extend, and lock the device's platform configuration registers`,
}

// pcrListCmd prints the full measurement bank
var pcrListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registers",
	Long:  `Print every measurement register with its value and lock state`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			list, err := dev.PCRs(ctx)
			if err != nil {
				return err
			}
			return printer.PrintPCRList(list)
		})
	},
}

// pcrReadCmd prints a single register
var pcrReadCmd = &cobra.Command{
	Use:   "read <slot>",
	Short: "Read a register",
	Long:  `Print the value and lock state of one measurement register`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		slot, err := parseSlot(args[0])
		if err != nil {
			handleError(err)
			return
		}
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			pcr, err := dev.DescribePCR(ctx, slot)
			if err != nil {
				return err
			}
			return printer.PrintPCR(pcr)
		})
	},
}

// pcrExtendCmd folds data into a register
var pcrExtendCmd = &cobra.Command{
	Use:   "extend <slot> [data]",
	Short: "Extend a register",
	Long: `Fold data into a measurement register and print the new value.
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
		printVerbose("extending PCR %d with %d byte(s)", slot, len(data))
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			pcr, err := dev.ExtendPCR(ctx, slot, data)
			if err != nil {
				return err
			}
			return printer.PrintPCR(pcr)
		})
	},
}

// pcrLockCmd locks a single register
var pcrLockCmd = &cobra.Command{
	Use:   "lock <slot>",
	Short: "Lock a register",
	Long:  `Make a measurement register read-only for the rest of the session`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		slot, err := parseSlot(args[0])
		if err != nil {
			handleError(err)
			return
		}
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			if err := dev.LockPCR(ctx, slot); err != nil {
				return err
			}
			return printer.PrintSuccess(fmt.Sprintf("Locked PCR %d", slot))
		})
	},
}

// pcrLockRangeCmd locks registers [0, limit)
var pcrLockRangeCmd = &cobra.Command{
	Use:   "lock-range <limit>",
	Short: "Lock registers below a limit",
	Long: `Lock every measurement register with an index below the limit.
Locking a register twice is not an error, so the command can be
repeated with a higher limit.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, err := strconv.Atoi(args[0])
		if err != nil {
			handleError(fmt.Errorf("invalid limit %q: %w", args[0], err))
			return
		}
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			if err := dev.LockPCRs(ctx, limit); err != nil {
				return err
			}
			return printer.PrintSuccess(fmt.Sprintf("Locked PCRs below %d", limit))
		})
	},
}

// pcrLockedCmd prints the lock state of the bank
var pcrLockedCmd = &cobra.Command{
	Use:   "locked",
	Short: "Show locked registers",
	Long:  `Print which measurement registers are locked`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			locked, err := dev.LockedPCRs(ctx)
			if err != nil {
				return err
			}
			return printer.PrintLockedPCRs(locked)
		})
	},
}

func init() {
	pcrExtendCmd.Flags().Bool("hex", false, "treat data as hex encoded")
	pcrExtendCmd.Flags().String("file", "", "read data from a file")

	pcrCmd.AddCommand(pcrListCmd)
	pcrCmd.AddCommand(pcrReadCmd)
	pcrCmd.AddCommand(pcrExtendCmd)
	pcrCmd.AddCommand(pcrLockCmd)
	pcrCmd.AddCommand(pcrLockRangeCmd)
	pcrCmd.AddCommand(pcrLockedCmd)
}

// parseSlot parses a register or certificate slot index argument
func parseSlot(raw string) (int, error) {
	slot, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q: %w", raw, err)
	}
	return slot, nil
}

// dataFromArgs resolves the data payload for a command from either a
// positional argument at index or the --file flag, honoring --hex.
func dataFromArgs(cmd *cobra.Command, args []string, index int) ([]byte, error) {
	file, _ := cmd.Flags().GetString("file")
	isHex, _ := cmd.Flags().GetBool("hex")

	var raw []byte
	switch {
	case file != "":
		if len(args) > index {
			return nil, fmt.Errorf("provide data as an argument or with --file, not both")
		}
		var err error
		// #nosec G304 - Data file path from CLI argument
		raw, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}
	case len(args) > index:
		raw = []byte(args[index])
	default:
		return nil, fmt.Errorf("data required (argument or --file)")
	}

	if isHex {
		decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		return decoded, nil
	}
	return raw, nil
}
