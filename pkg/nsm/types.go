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

package nsm

// Fixed device capacities. These are part of the contract and are relied
// on by the attestation, REST, and client layers.
const (
	// PCRSlots is the number of measurement registers in the bank.
	PCRSlots = 32

	// DigestLen is the length in bytes of every PCR value and digest.
	DigestLen = 32

	// CertificateSlots is the number of certificate slots in the store.
	CertificateSlots = 4

	// ModuleIDLen is the length in hex characters of a module ID.
	ModuleIDLen = 32

	// DefaultMaxCertBytes is the default certificate memory budget per
	// session, covering the total bytes stored across all slots.
	DefaultMaxCertBytes = 1 << 20
)

// PCRValue describes a single measurement register: its index, current
// 32-byte value, and whether it has been locked.
type PCRValue struct {
	Index  int    `json:"index"`
	Value  []byte `json:"value"`
	Locked bool   `json:"locked"`
}

// DeviceInfo describes a module session, mirroring what a DescribeNSM
// call reports: identity, capacities, lock state, and how many
// certificate slots are occupied.
type DeviceInfo struct {
	ModuleID         string `json:"module_id"`
	PCRSlots         int    `json:"pcr_slots"`
	CertificateSlots int    `json:"certificate_slots"`
	LockedPCRs       []int  `json:"locked_pcrs"`
	Certificates     int    `json:"certificates"`
	Digest           string `json:"digest"`
}
