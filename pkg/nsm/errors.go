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

import "errors"

var (
	// ErrSessionClosed is returned when an operation other than
	// ModuleID or Closed is attempted on a closed session.
	ErrSessionClosed = errors.New("nsm: session is closed")

	// ErrInvalidSlot is returned when a PCR or certificate slot index
	// is outside the valid range for its store.
	ErrInvalidSlot = errors.New("nsm: invalid slot index")

	// ErrInvalidLength is returned when a required variable-length
	// input (random byte count, extend payload, certificate payload)
	// is zero or negative.
	ErrInvalidLength = errors.New("nsm: invalid length")

	// ErrSlotLocked is returned when extending a PCR slot that has
	// been locked.
	ErrSlotLocked = errors.New("nsm: pcr slot is locked")

	// ErrCertMissing is returned when reading or removing a
	// certificate slot that holds no content.
	ErrCertMissing = errors.New("nsm: certificate slot is empty")

	// ErrNoMemory is returned when storing a certificate would exceed
	// the session's certificate memory budget.
	ErrNoMemory = errors.New("nsm: out of device memory")
)

// Code is the numeric device status associated with an operation result.
// The values are part of the emulator wire contract and never change.
type Code int

const (
	CodeOK Code = iota
	CodeInvalidSlot
	CodeLocked
	CodeInvalidLength
	CodeCertMissing
	CodeNoMemory
	CodeClosed

	// CodeUnknown is reported for errors that did not originate in the
	// device state machine.
	CodeUnknown Code = -1
)

// String returns the lowercase name of the status code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidSlot:
		return "invalid_slot"
	case CodeLocked:
		return "locked"
	case CodeInvalidLength:
		return "invalid_length"
	case CodeCertMissing:
		return "cert_missing"
	case CodeNoMemory:
		return "no_memory"
	case CodeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Err returns the sentinel error corresponding to the status code. It
// returns nil for CodeOK and CodeUnknown.
func (c Code) Err() error {
	switch c {
	case CodeInvalidSlot:
		return ErrInvalidSlot
	case CodeLocked:
		return ErrSlotLocked
	case CodeInvalidLength:
		return ErrInvalidLength
	case CodeCertMissing:
		return ErrCertMissing
	case CodeNoMemory:
		return ErrNoMemory
	case CodeClosed:
		return ErrSessionClosed
	default:
		return nil
	}
}

// ErrorCode maps an error to its device status code. Wrapped sentinels
// are recognized with errors.Is. Errors that are not device errors map
// to CodeUnknown.
func ErrorCode(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidSlot):
		return CodeInvalidSlot
	case errors.Is(err, ErrSlotLocked):
		return CodeLocked
	case errors.Is(err, ErrInvalidLength):
		return CodeInvalidLength
	case errors.Is(err, ErrCertMissing):
		return CodeCertMissing
	case errors.Is(err, ErrNoMemory):
		return CodeNoMemory
	case errors.Is(err, ErrSessionClosed):
		return CodeClosed
	default:
		return CodeUnknown
	}
}
