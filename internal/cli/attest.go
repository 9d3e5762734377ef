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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-nsm/pkg/attestation"
	"github.com/jeremyhahn/go-nsm/pkg/client"
)

// attestCmd produces an attestation document
var attestCmd = &cobra.Command{
	Use:   "attest",
	Short: "Produce an attestation document",
	Long: `Build an attestation document over the device's current
measurement state. Optional user data, a public key, and a nonce are
bound into the document digest. Pass --verify to check the document's
internal consistency after building it.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		req, err := attestationRequest(cmd)
		if err != nil {
			handleError(err)
			return
		}
		verify, _ := cmd.Flags().GetBool("verify")
		outFile, _ := cmd.Flags().GetString("out")

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			doc, err := dev.Attest(ctx, req)
			if err != nil {
				return err
			}
			if verify {
				if err := doc.Verify(); err != nil {
					return fmt.Errorf("document verification failed: %w", err)
				}
				printVerbose("document verified")
			}
			if outFile != "" {
				raw, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(outFile, raw, 0600); err != nil {
					return fmt.Errorf("failed to write %s: %w", outFile, err)
				}
				return printer.PrintSuccess(fmt.Sprintf("Wrote attestation document to %s", outFile))
			}
			return printer.PrintAttestation(doc)
		})
	},
}

// digestCmd prints the digest over the measurement bank
var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print the attestation digest",
	Long:  `Compute and print the digest over the full measurement bank`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		withDevice(cmd, func(ctx context.Context, dev Device) error {
			digest, err := dev.AttestationDigest(ctx)
			if err != nil {
				return err
			}
			return printer.PrintDigest(digest)
		})
	},
}

// verifyCmd checks a stored attestation document
var verifyCmd = &cobra.Command{
	Use:   "verify <document-file>",
	Short: "Verify an attestation document",
	Long: `Check the internal consistency of an attestation document
previously written with "attest --out". Verification recomputes the
document digest from its own fields; it needs no device.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		// #nosec G304 - Document file path from CLI argument
		raw, err := os.ReadFile(args[0])
		if err != nil {
			handleError(fmt.Errorf("failed to read document: %w", err))
			return
		}
		doc, err := parseDocument(raw)
		if err != nil {
			handleError(err)
			return
		}
		if err := doc.Verify(); err != nil {
			handleError(fmt.Errorf("document verification failed: %w", err))
			return
		}
		if err := printer.PrintSuccess(fmt.Sprintf("Document for module %s verified", doc.ModuleID)); err != nil {
			handleError(err)
		}
	},
}

func init() {
	attestCmd.Flags().String("user-data", "", "user data to bind into the document")
	attestCmd.Flags().String("public-key", "", "file containing public key material to bind")
	attestCmd.Flags().String("nonce", "", "hex-encoded freshness nonce to bind")
	attestCmd.Flags().Bool("verify", false, "verify the document after building it")
	attestCmd.Flags().String("out", "", "write the document as JSON to a file")

	attestCmd.AddCommand(verifyCmd)
}

// parseDocument decodes a JSON attestation document
func parseDocument(raw []byte) (*attestation.Document, error) {
	var doc attestation.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

// attestationRequest assembles the optional caller fields from flags
func attestationRequest(cmd *cobra.Command) (*client.AttestationRequest, error) {
	userData, _ := cmd.Flags().GetString("user-data")
	publicKeyFile, _ := cmd.Flags().GetString("public-key")
	nonceHex, _ := cmd.Flags().GetString("nonce")

	req := &client.AttestationRequest{}
	if userData != "" {
		req.UserData = []byte(userData)
	}
	if publicKeyFile != "" {
		// #nosec G304 - Public key file path from CLI argument
		raw, err := os.ReadFile(publicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key file: %w", err)
		}
		req.PublicKey = raw
	}
	if nonceHex != "" {
		nonce, err := hex.DecodeString(nonceHex)
		if err != nil {
			return nil, fmt.Errorf("invalid nonce: %w", err)
		}
		req.Nonce = nonce
	}
	return req, nil
}
