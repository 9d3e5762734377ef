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

// Package attestation builds and verifies attestation documents over the
// state of a device session. A document is a self-contained snapshot of
// the measurement bank, the lock set, and the leaf certificate, bound
// together by a SHA-256 digest that also covers caller-supplied user
// data, public key material, and a freshness nonce.
//
// Typical workflow:
//  1. Extend and lock measurement slots during boot
//  2. Install the device certificate
//  3. Request a document, passing a nonce from the relying party
//  4. Ship the document; the relying party verifies the digest and
//     compares the measurement values against its reference set
package attestation

import "github.com/jeremyhahn/go-nsm/pkg/nsm"

// Document is a point-in-time attestation of a device session.
//
// The Digest field binds every measurement value and the optional
// request fields together. It deliberately excludes the timestamp and
// lock set so that two documents over identical measurements compare
// equal regardless of when they were produced.
type Document struct {
	// ModuleID is the device identity the document attests for.
	ModuleID string `json:"module_id"`

	// Timestamp is the document creation time in Unix seconds.
	Timestamp int64 `json:"timestamp"`

	// Digest is a SHA-256 sum over all measurement values in slot
	// order followed by UserData, PublicKey, and Nonce. Empty request
	// fields are skipped rather than hashed as zero-length runs.
	Digest []byte `json:"digest"`

	// PCRs maps slot index to the measurement value at build time.
	// Every slot is present, including zeroed ones.
	PCRs map[int][]byte `json:"pcrs"`

	// LockedPCRs lists the slots that were locked at build time, in
	// ascending order.
	LockedPCRs []int `json:"locked_pcrs"`

	// Certificate is the content of the lowest occupied certificate
	// slot, or nil when the store is empty.
	Certificate []byte `json:"certificate,omitempty"`

	// CABundle carries intermediate certificates. The simulated device
	// has no chain to offer, so it is always nil; the field exists so
	// documents deserialize against real-device payloads.
	CABundle [][]byte `json:"cabundle,omitempty"`

	// UserData echoes the request's user data.
	UserData []byte `json:"user_data,omitempty"`

	// PublicKey echoes the request's public key material.
	PublicKey []byte `json:"public_key,omitempty"`

	// Nonce echoes the request's freshness nonce.
	Nonce []byte `json:"nonce,omitempty"`
}

// Request carries the caller-supplied fields bound into a document.
// All fields are optional; a nil Request is equivalent to an empty one.
type Request struct {
	// UserData is opaque application data to bind into the digest.
	UserData []byte `json:"user_data,omitempty"`

	// PublicKey is public key material the caller wants attested.
	PublicKey []byte `json:"public_key,omitempty"`

	// Nonce is a relying-party challenge proving freshness.
	Nonce []byte `json:"nonce,omitempty"`
}

// slotCount mirrors the measurement bank capacity. Verification
// requires a value for every slot.
const slotCount = nsm.PCRSlots
