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

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"
)

var (
	processOnce sync.Once
	processRand *lockedReader
)

// processSource returns the process-wide random source shared by every
// session that does not inject its own. It is seeded exactly once, on
// first use, from the wall clock. The stream is uniform but not
// cryptographically secure, matching the rest of the simulation.
func processSource() io.Reader {
	processOnce.Do(func() {
		var seed [32]byte
		binary.LittleEndian.PutUint64(seed[:8], uint64(time.Now().UnixNano()))
		processRand = &lockedReader{src: rand.NewChaCha8(seed)}
	})
	return processRand
}

// lockedReader serializes reads from the shared generator. Sessions on
// different goroutines may share the process source even though each
// individual session is single-caller.
type lockedReader struct {
	mu  sync.Mutex
	src *rand.ChaCha8
}

func (r *lockedReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Read(p)
}

// newModuleID draws 16 bytes from src and encodes them as 32 lowercase
// hex characters.
func newModuleID(src io.Reader) (string, error) {
	raw := make([]byte, ModuleIDLen/2)
	if _, err := io.ReadFull(src, raw); err != nil {
		return "", fmt.Errorf("nsm: generate module id: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
