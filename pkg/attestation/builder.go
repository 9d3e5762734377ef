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
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

// Build produces an attestation document over the session's current
// state. Device errors propagate unwrapped, so callers can match them
// with errors.Is; in particular a closed session yields
// nsm.ErrSessionClosed.
func Build(session *nsm.Session, req *Request) (*Document, error) {
	if session == nil {
		return nil, fmt.Errorf("attestation: nil session")
	}
	if req == nil {
		req = &Request{}
	}

	pcrs, err := session.PCRs()
	if err != nil {
		return nil, err
	}
	locked, err := session.LockedPCRs()
	if err != nil {
		return nil, err
	}
	cert, err := session.FirstCertificate()
	if err != nil {
		return nil, err
	}

	values := make([][]byte, len(pcrs))
	pcrMap := make(map[int][]byte, len(pcrs))
	for _, pcr := range pcrs {
		values[pcr.Index] = pcr.Value
		pcrMap[pcr.Index] = pcr.Value
	}

	return &Document{
		ModuleID:    session.ModuleID(),
		Timestamp:   time.Now().Unix(),
		Digest:      documentDigest(values, req.UserData, req.PublicKey, req.Nonce),
		PCRs:        pcrMap,
		LockedPCRs:  locked,
		Certificate: cert,
		UserData:    req.UserData,
		PublicKey:   req.PublicKey,
		Nonce:       req.Nonce,
	}, nil
}

// documentDigest hashes the measurement values in slot order, then the
// optional request fields. Empty fields contribute nothing, so a nil
// nonce and an absent nonce digest identically.
func documentDigest(values [][]byte, userData, publicKey, nonce []byte) []byte {
	h := sha256.New()
	for _, value := range values {
		h.Write(value)
	}
	if len(userData) > 0 {
		h.Write(userData)
	}
	if len(publicKey) > 0 {
		h.Write(publicKey)
	}
	if len(nonce) > 0 {
		h.Write(nonce)
	}
	return h.Sum(nil)
}
