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

package rest

import (
	"encoding/hex"

	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

// Binary request fields ([]byte) ride the standard encoding/json base64
// encoding. Digest and measurement values in responses are hex strings so
// they read the same as device tool output.

// SessionResponse describes one open device session.
type SessionResponse struct {
	ModuleID         string `json:"module_id"`
	PCRSlots         int    `json:"pcr_slots"`
	CertificateSlots int    `json:"certificate_slots"`
	LockedPCRs       []int  `json:"locked_pcrs"`
	Certificates     int    `json:"certificates"`
	Digest           string `json:"digest"`
}

func newSessionResponse(info nsm.DeviceInfo) SessionResponse {
	locked := info.LockedPCRs
	if locked == nil {
		locked = []int{}
	}
	return SessionResponse{
		ModuleID:         info.ModuleID,
		PCRSlots:         info.PCRSlots,
		CertificateSlots: info.CertificateSlots,
		LockedPCRs:       locked,
		Certificates:     info.Certificates,
		Digest:           info.Digest,
	}
}

// ListSessionsResponse lists every open session.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// RandomRequest asks the device for random bytes.
type RandomRequest struct {
	Length int `json:"length"`
}

// RandomResponse carries hex-encoded random bytes.
type RandomResponse struct {
	Random string `json:"random"`
	Length int    `json:"length"`
}

// PCRResponse describes a single measurement register.
type PCRResponse struct {
	Index  int    `json:"index"`
	Value  string `json:"value"`
	Locked bool   `json:"locked"`
}

func newPCRResponse(pcr nsm.PCRValue) PCRResponse {
	return PCRResponse{
		Index:  pcr.Index,
		Value:  hex.EncodeToString(pcr.Value),
		Locked: pcr.Locked,
	}
}

// ListPCRsResponse carries a snapshot of the full measurement bank.
type ListPCRsResponse struct {
	PCRs []PCRResponse `json:"pcrs"`
}

// ExtendPCRRequest folds data into a measurement register.
type ExtendPCRRequest struct {
	Data []byte `json:"data"`
}

// LockRangeRequest locks registers [0, Range).
type LockRangeRequest struct {
	Range int `json:"range"`
}

// LockedPCRsResponse reports the lock state of the measurement bank.
// Flags is the hex-encoded per-register flag array; its length follows
// the requested flag count.
type LockedPCRsResponse struct {
	Slots []int  `json:"slots"`
	Flags string `json:"flags"`
}

// CertificateRequest stores certificate data in a slot.
type CertificateRequest struct {
	Data []byte `json:"data"`
}

// CertificateResponse carries stored certificate data.
type CertificateResponse struct {
	Slot int    `json:"slot"`
	Data []byte `json:"data"`
	Size int    `json:"size"`
}

// CertificateInfo describes an occupied certificate slot without its data.
type CertificateInfo struct {
	Slot int `json:"slot"`
	Size int `json:"size"`
}

// ListCertificatesResponse lists occupied certificate slots.
type ListCertificatesResponse struct {
	Certificates []CertificateInfo `json:"certificates"`
}

// AttestationRequest carries optional caller fields bound into the
// attestation document digest.
type AttestationRequest struct {
	UserData  []byte `json:"user_data,omitempty"`
	PublicKey []byte `json:"public_key,omitempty"`
	Nonce     []byte `json:"nonce,omitempty"`
}

// DigestResponse carries the hex-encoded digest over the measurement bank.
type DigestResponse struct {
	Digest string `json:"digest"`
}

// HealthResponse represents a basic health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ErrorResponse represents an error response. DeviceCode carries the
// device error kind when the failure maps to one, so clients can recover
// the original sentinel.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	Code       int    `json:"code,omitempty"`
	DeviceCode string `json:"device_code,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
