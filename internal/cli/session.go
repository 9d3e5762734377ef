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

	"github.com/jeremyhahn/go-nsm/pkg/client"
)

// sessionCmd manages device sessions on a server
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage server sessions",
	Long: `Create, list, describe, and close device sessions on a go-nsm
server. Session commands require --server; sessions created here stay
open until closed and can be addressed by other commands via
--session <module-id>.`,
}

// withClient connects to the configured server and runs fn
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) {
	cfg := getConfig()
	if !cfg.IsRemote() {
		handleError(fmt.Errorf("session commands require --server"))
		return
	}
	ctx := cmd.Context()
	c, err := client.New(&client.Config{
		Address: cfg.Server,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		handleError(err)
		return
	}
	if err := c.Connect(ctx); err != nil {
		handleError(err)
		return
	}
	err = fn(ctx, c)
	if closeErr := c.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		handleError(err)
	}
}

// sessionCreateCmd opens a new session
var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session",
	Long: `Open a new device session on the server and print its module ID.
The session stays open until closed with "session close".`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withClient(cmd, func(ctx context.Context, c *client.Client) error {
			info, err := c.CreateSession(ctx)
			if err != nil {
				return err
			}
			printVerbose("created session %s", info.ModuleID)
			return printer.PrintDeviceInfo(info)
		})
	},
}

// sessionListCmd lists open sessions
var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Long:  `List every open device session on the server`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withClient(cmd, func(ctx context.Context, c *client.Client) error {
			list, err := c.ListSessions(ctx)
			if err != nil {
				return err
			}
			return printer.PrintSessionList(list)
		})
	},
}

// sessionDescribeCmd prints one session
var sessionDescribeCmd = &cobra.Command{
	Use:   "describe <module-id>",
	Short: "Describe a session",
	Long:  `Print the state of one device session`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withClient(cmd, func(ctx context.Context, c *client.Client) error {
			info, err := c.DescribeSession(ctx, args[0])
			if err != nil {
				return err
			}
			return printer.PrintDeviceInfo(info)
		})
	},
}

// sessionCloseCmd closes a session
var sessionCloseCmd = &cobra.Command{
	Use:   "close <module-id>",
	Short: "Close a session",
	Long:  `Close a device session, discarding its measurement and certificate state`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withClient(cmd, func(ctx context.Context, c *client.Client) error {
			if err := c.CloseSession(ctx, args[0]); err != nil {
				return err
			}
			return printer.PrintSuccess(fmt.Sprintf("Closed session %s", args[0]))
		})
	},
}

func init() {
	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionDescribeCmd)
	sessionCmd.AddCommand(sessionCloseCmd)
}
