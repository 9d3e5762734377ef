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

package attestation

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

var (
	// ErrDigestMismatch is returned when the recomputed digest does
	// not match the document's Digest field.
	ErrDigestMismatch = errors.New("attestation: digest mismatch")

	// ErrIncompletePCRs is returned when the document is missing a
	// measurement slot or carries a malformed value.
	ErrIncompletePCRs = errors.New("attestation: incomplete measurement set")
)

// Verify recomputes the document digest from its measurement values and
// request fields and compares it against the Digest field. It proves
// internal consistency only; trust in the document still depends on the
// channel it arrived over.
func (d *Document) Verify() error {
	values := make([][]byte, slotCount)
	for slot := 0; slot < slotCount; slot++ {
		value, ok := d.PCRs[slot]
		if !ok {
			return fmt.Errorf("%w: slot %d missing", ErrIncompletePCRs, slot)
		}
		if len(value) != nsm.DigestLen {
			return fmt.Errorf("%w: slot %d has %d bytes", ErrIncompletePCRs, slot, len(value))
		}
		values[slot] = value
	}

	sum := documentDigest(values, d.UserData, d.PublicKey, d.Nonce)
	if !bytes.Equal(sum, d.Digest) {
		return ErrDigestMismatch
	}
	return nil
}
