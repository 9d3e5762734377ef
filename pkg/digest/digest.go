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

// Package digest defines the mixing function used by the simulated security
// module for PCR extension and attestation aggregation, plus the built-in
// implementations. The default algorithm, Mix256, is deterministic and
// sensitive to input content and length but is NOT cryptographically secure.
// SHA256 is provided for callers that want a real hash behind the same
// interface.
package digest

import (
	"crypto/sha256"
	"fmt"
)

// Size is the length in bytes of every digest produced by this package.
const Size = 32

// Algorithm names accepted by New.
const (
	AlgorithmMix256 = "mix256"
	AlgorithmSHA256 = "sha256"
)

// Digest maps an arbitrary-length byte sequence to a fixed Size-byte value.
// Implementations must be deterministic within a process and safe for
// concurrent use.
type Digest interface {
	// Sum returns the digest of data. It must produce identical output
	// for identical input, for any input length including zero.
	Sum(data []byte) [Size]byte

	// Algorithm returns the lowercase name of the algorithm.
	Algorithm() string
}

// New returns the Digest implementation registered under name. An empty
// name selects Mix256.
func New(name string) (Digest, error) {
	switch name {
	case AlgorithmMix256, "":
		return Mix256{}, nil
	case AlgorithmSHA256:
		return SHA256{}, nil
	default:
		return nil, fmt.Errorf("digest: unknown algorithm %q", name)
	}
}

// Mix256 is the placeholder mixing function used by the simulated device.
// Each output byte i seeds from 0x42+17*i, then folds in every 32nd input
// byte starting at offset i with a rotate-left-5 and xor, and finally xors
// the low byte of the input length. Deterministic and length-sensitive,
// nothing more; do not use it where collision resistance matters.
type Mix256 struct{}

// Algorithm returns "mix256".
func (Mix256) Algorithm() string { return AlgorithmMix256 }

// Sum returns the Mix256 digest of data.
func (Mix256) Sum(data []byte) [Size]byte {
	var out [Size]byte
	length := len(data)
	for i := 0; i < Size; i++ {
		value := 0x42 + byte(i)*17
		for j := i; j < length; j += Size {
			value = value<<5 | value>>3
			value ^= data[j]
		}
		out[i] = value ^ byte(length)
	}
	return out
}

// SHA256 adapts crypto/sha256 to the Digest interface.
type SHA256 struct{}

// Algorithm returns "sha256".
func (SHA256) Algorithm() string { return AlgorithmSHA256 }

// Sum returns the SHA-256 digest of data.
func (SHA256) Sum(data []byte) [Size]byte {
	return sha256.Sum256(data)
}
