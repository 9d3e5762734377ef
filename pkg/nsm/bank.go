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

import "github.com/jeremyhahn/go-nsm/pkg/digest"

// bank is the fixed array of measurement registers owned by a session.
// Slots start zeroed and unlocked; a locked slot never unlocks for the
// life of the session. The open/closed gate lives in Session, not here.
type bank struct {
	values [PCRSlots][DigestLen]byte
	locks  [PCRSlots]bool
}

func validPCRSlot(slot int) bool {
	return slot >= 0 && slot < PCRSlots
}

// describe returns a copy of the slot's current value. Reads are allowed
// regardless of lock state.
func (b *bank) describe(slot int) ([]byte, error) {
	if !validPCRSlot(slot) {
		return nil, ErrInvalidSlot
	}
	out := make([]byte, DigestLen)
	copy(out, b.values[slot][:])
	return out, nil
}

// extend folds data into the slot's running digest: the new value is
// d.Sum(current || data). It is the only mutator of slot values.
func (b *bank) extend(slot int, data []byte, d digest.Digest) ([]byte, error) {
	if !validPCRSlot(slot) {
		return nil, ErrInvalidSlot
	}
	if len(data) == 0 {
		return nil, ErrInvalidLength
	}
	if b.locks[slot] {
		return nil, ErrSlotLocked
	}
	buf := make([]byte, 0, DigestLen+len(data))
	buf = append(buf, b.values[slot][:]...)
	buf = append(buf, data...)
	b.values[slot] = d.Sum(buf)
	out := make([]byte, DigestLen)
	copy(out, b.values[slot][:])
	return out, nil
}

// lock marks the slot locked. Locking an already locked slot is not an
// error.
func (b *bank) lock(slot int) error {
	if !validPCRSlot(slot) {
		return ErrInvalidSlot
	}
	b.locks[slot] = true
	return nil
}

// lockRange locks every slot with index below limit. Limits beyond the
// bank size clamp to PCRSlots; zero locks nothing.
func (b *bank) lockRange(limit int) {
	if limit > PCRSlots {
		limit = PCRSlots
	}
	for i := 0; i < limit; i++ {
		b.locks[i] = true
	}
}

// locked reports whether the slot is locked.
func (b *bank) locked(slot int) bool {
	return validPCRSlot(slot) && b.locks[slot]
}

// lockedFlags returns exactly length bytes where byte i is 1 if slot i
// is locked, zero-padding positions past the last slot.
func (b *bank) lockedFlags(length int) []byte {
	flags := make([]byte, length)
	n := length
	if n > PCRSlots {
		n = PCRSlots
	}
	for i := 0; i < n; i++ {
		if b.locks[i] {
			flags[i] = 1
		}
	}
	return flags
}

// lockedSlots returns the indices of all locked slots in ascending order.
func (b *bank) lockedSlots() []int {
	slots := []int{}
	for i, locked := range b.locks {
		if locked {
			slots = append(slots, i)
		}
	}
	return slots
}

// concat returns the values of every slot in index order as one buffer,
// the input to the aggregate attestation digest.
func (b *bank) concat() []byte {
	buf := make([]byte, 0, PCRSlots*DigestLen)
	for i := range b.values {
		buf = append(buf, b.values[i][:]...)
	}
	return buf
}
