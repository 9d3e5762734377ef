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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-nsm/pkg/attestation"
	"github.com/jeremyhahn/go-nsm/pkg/client"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintDeviceInfo prints a device session description
func (p *Printer) PrintDeviceInfo(info *client.SessionResponse) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(info)
	case OutputFormatYAML:
		return p.printYAML(info)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Module ID:         %s\n", info.ModuleID)
		fmt.Fprintf(p.writer, "Digest:            %s\n", info.Digest)
		fmt.Fprintf(p.writer, "PCR slots:         %d\n", info.PCRSlots)
		fmt.Fprintf(p.writer, "Certificate slots: %d\n", info.CertificateSlots)
		fmt.Fprintf(p.writer, "Certificates:      %d\n", info.Certificates)
		fmt.Fprintf(p.writer, "Locked PCRs:       %s\n", formatSlots(info.LockedPCRs))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSessionList prints the open sessions on a server
func (p *Printer) PrintSessionList(list *client.ListSessionsResponse) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(list)
	case OutputFormatYAML:
		return p.printYAML(list)
	case OutputFormatText:
		if len(list.Sessions) == 0 {
			fmt.Fprintln(p.writer, "No open sessions")
			return nil
		}
		fmt.Fprintf(p.writer, "%-34s %-8s %-7s %-6s\n", "MODULE ID", "DIGEST", "LOCKED", "CERTS")
		fmt.Fprintln(p.writer, strings.Repeat("-", 58))
		for _, s := range list.Sessions {
			fmt.Fprintf(p.writer, "%-34s %-8s %-7d %-6d\n",
				s.ModuleID, s.Digest, len(s.LockedPCRs), s.Certificates)
		}
		fmt.Fprintf(p.writer, "\nTotal: %d session(s)\n", len(list.Sessions))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintPCR prints a single measurement register
func (p *Printer) PrintPCR(pcr *client.PCRResponse) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(pcr)
	case OutputFormatYAML:
		return p.printYAML(pcr)
	case OutputFormatText:
		fmt.Fprintln(p.writer, formatPCRLine(*pcr))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintPCRList prints a snapshot of the full measurement bank
func (p *Printer) PrintPCRList(list *client.ListPCRsResponse) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(list)
	case OutputFormatYAML:
		return p.printYAML(list)
	case OutputFormatText:
		for _, pcr := range list.PCRs {
			fmt.Fprintln(p.writer, formatPCRLine(pcr))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintLockedPCRs prints the lock state of the measurement bank
func (p *Printer) PrintLockedPCRs(locked *client.LockedPCRsResponse) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(locked)
	case OutputFormatYAML:
		return p.printYAML(locked)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Locked PCRs: %s\n", formatSlots(locked.Slots))
		if locked.Flags != "" {
			fmt.Fprintf(p.writer, "Flags:       %s\n", locked.Flags)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintRandom prints random bytes as hex
func (p *Printer) PrintRandom(data []byte) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"random": hex.EncodeToString(data),
			"length": len(data),
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"random": hex.EncodeToString(data),
			"length": len(data),
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, hex.EncodeToString(data))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintCertificate prints a stored certificate
func (p *Printer) PrintCertificate(slot int, data []byte) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"slot": slot,
			"size": len(data),
			"data": hex.EncodeToString(data),
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"slot": slot,
			"size": len(data),
			"data": hex.EncodeToString(data),
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Slot: %d\n", slot)
		fmt.Fprintf(p.writer, "Size: %d bytes\n", len(data))
		fmt.Fprintf(p.writer, "Data: %s\n", hex.EncodeToString(data))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintCertificateList prints the occupied certificate slots
func (p *Printer) PrintCertificateList(list *client.ListCertificatesResponse) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(list)
	case OutputFormatYAML:
		return p.printYAML(list)
	case OutputFormatText:
		if len(list.Certificates) == 0 {
			fmt.Fprintln(p.writer, "No certificates stored")
			return nil
		}
		fmt.Fprintf(p.writer, "%-6s %s\n", "SLOT", "SIZE")
		for _, cert := range list.Certificates {
			fmt.Fprintf(p.writer, "%-6d %d bytes\n", cert.Slot, cert.Size)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintAttestation prints an attestation document
func (p *Printer) PrintAttestation(doc *attestation.Document) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(doc)
	case OutputFormatYAML:
		return p.printYAML(doc)
	case OutputFormatText:
		created := time.Unix(doc.Timestamp, 0).UTC().Format(time.RFC3339)
		fmt.Fprintf(p.writer, "Module ID:   %s\n", doc.ModuleID)
		fmt.Fprintf(p.writer, "Created:     %s\n", created)
		fmt.Fprintf(p.writer, "Digest:      %s\n", hex.EncodeToString(doc.Digest))
		fmt.Fprintf(p.writer, "PCRs:        %d\n", len(doc.PCRs))
		fmt.Fprintf(p.writer, "Locked PCRs: %s\n", formatSlots(doc.LockedPCRs))
		if len(doc.Certificate) > 0 {
			fmt.Fprintf(p.writer, "Certificate: %d bytes\n", len(doc.Certificate))
		}
		if len(doc.UserData) > 0 {
			fmt.Fprintf(p.writer, "User data:   %d bytes\n", len(doc.UserData))
		}
		if len(doc.PublicKey) > 0 {
			fmt.Fprintf(p.writer, "Public key:  %d bytes\n", len(doc.PublicKey))
		}
		if len(doc.Nonce) > 0 {
			fmt.Fprintf(p.writer, "Nonce:       %s\n", hex.EncodeToString(doc.Nonce))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintDigest prints the attestation digest over the measurement bank
func (p *Printer) PrintDigest(digest []byte) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"digest": hex.EncodeToString(digest),
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"digest": hex.EncodeToString(digest),
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, hex.EncodeToString(digest))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// printJSON prints data as formatted JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// printYAML prints data as YAML. Values round-trip through JSON first
// so field names match the -o json output instead of Go identifiers.
func (p *Printer) printYAML(data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	_, err = p.writer.Write(out)
	return err
}

func formatPCRLine(pcr client.PCRResponse) string {
	line := fmt.Sprintf("PCR[%02d]  %s", pcr.Index, pcr.Value)
	if pcr.Locked {
		line += "  (locked)"
	}
	return line
}

func formatSlots(slots []int) string {
	if len(slots) == 0 {
		return "none"
	}
	parts := make([]string, len(slots))
	for i, slot := range slots {
		parts[i] = fmt.Sprintf("%d", slot)
	}
	return strings.Join(parts, ", ")
}
