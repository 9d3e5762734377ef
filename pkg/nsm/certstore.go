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

// certStore is the fixed set of certificate slots owned by a session.
// Slots hold opaque blobs; writing a slot replaces its content wholesale.
// maxBytes bounds the total stored bytes across all slots (zero means
// unbounded) so the NoMemory condition stays reachable in a runtime
// that cannot observe allocation failure.
type certStore struct {
	slots    [CertificateSlots][]byte
	maxBytes int
	used     int
}

func validCertSlot(slot int) bool {
	return slot >= 0 && slot < CertificateSlots
}

// set replaces the slot's content. The budget is checked before the old
// blob is touched, so a failed set leaves the slot unchanged.
func (c *certStore) set(slot int, data []byte) error {
	if !validCertSlot(slot) {
		return ErrInvalidSlot
	}
	if len(data) == 0 {
		return ErrInvalidLength
	}
	if c.maxBytes > 0 && c.used-len(c.slots[slot])+len(data) > c.maxBytes {
		return ErrNoMemory
	}
	blob := make([]byte, len(data))
	copy(blob, data)
	c.used += len(data) - len(c.slots[slot])
	c.slots[slot] = blob
	return nil
}

// describe returns a copy of the slot's content.
func (c *certStore) describe(slot int) ([]byte, error) {
	if !validCertSlot(slot) {
		return nil, ErrInvalidSlot
	}
	if c.slots[slot] == nil {
		return nil, ErrCertMissing
	}
	out := make([]byte, len(c.slots[slot]))
	copy(out, c.slots[slot])
	return out, nil
}

// remove clears the slot.
func (c *certStore) remove(slot int) error {
	if !validCertSlot(slot) {
		return ErrInvalidSlot
	}
	if c.slots[slot] == nil {
		return ErrCertMissing
	}
	c.used -= len(c.slots[slot])
	c.slots[slot] = nil
	return nil
}

// count returns how many slots are occupied.
func (c *certStore) count() int {
	n := 0
	for _, blob := range c.slots {
		if blob != nil {
			n++
		}
	}
	return n
}

// first returns a copy of the lowest occupied slot's content, or nil if
// every slot is empty.
func (c *certStore) first() []byte {
	for _, blob := range c.slots {
		if blob != nil {
			out := make([]byte, len(blob))
			copy(out, blob)
			return out
		}
	}
	return nil
}

// release drops every blob, returning the store to its initial state.
func (c *certStore) release() {
	for i := range c.slots {
		c.slots[i] = nil
	}
	c.used = 0
}
