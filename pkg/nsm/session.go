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

// Package nsm simulates an AWS Nitro Security Module device in process
// memory: a bank of 32 lockable measurement registers, 4 certificate
// slots, a random source, and a deterministic attestation digest. It is
// a development stand-in for real enclave hardware; the default digest
// is a placeholder mixer, not a cryptographic hash.
package nsm

import (
	"io"

	"github.com/jeremyhahn/go-nsm/pkg/digest"
	"github.com/jeremyhahn/go-nsm/pkg/logging"
)

// Params configures a new Session. The zero value selects the defaults
// for every field.
type Params struct {
	// Digest is the mixing function used for PCR extension and the
	// aggregate attestation digest. Defaults to digest.Mix256.
	Digest digest.Digest

	// Random sources the module ID and the Random operation. Defaults
	// to the process-wide generator, seeded once on first use. Tests
	// inject a deterministic reader here.
	Random io.Reader

	// MaxCertBytes bounds the total certificate bytes stored across
	// all slots. Zero selects DefaultMaxCertBytes; a negative value
	// disables the budget.
	MaxCertBytes int

	// Logger receives session lifecycle events. Defaults to the
	// package default logger.
	Logger *logging.Logger
}

// Session is a simulated security module: the aggregate root owning one
// measurement bank, one certificate store, and a random source binding.
// Its identity is fixed at creation and readable for the session's whole
// life, including after Close.
//
// A Session is not safe for concurrent use. Callers that share one
// across goroutines must serialize access externally.
type Session struct {
	moduleID string
	closed   bool
	digest   digest.Digest
	random   io.Reader
	logger   *logging.Logger
	bank     bank
	certs    certStore
}

// New creates an open Session with a fresh random module ID, all PCR
// slots zeroed and unlocked, and all certificate slots empty.
func New(params *Params) (*Session, error) {
	if params == nil {
		params = &Params{}
	}
	d := params.Digest
	if d == nil {
		d = digest.Mix256{}
	}
	src := params.Random
	if src == nil {
		src = processSource()
	}
	logger := params.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	maxBytes := params.MaxCertBytes
	if maxBytes == 0 {
		maxBytes = DefaultMaxCertBytes
	} else if maxBytes < 0 {
		maxBytes = 0
	}

	moduleID, err := newModuleID(src)
	if err != nil {
		return nil, err
	}

	session := &Session{
		moduleID: moduleID,
		digest:   d,
		random:   src,
		logger:   logger,
		certs:    certStore{maxBytes: maxBytes},
	}
	logger.Debugf("nsm: session %s created (digest=%s)", moduleID, d.Algorithm())
	return session, nil
}

// ModuleID returns the session's identity: 32 lowercase hex characters,
// fixed at creation. It remains readable after Close.
func (s *Session) ModuleID() string {
	return s.moduleID
}

// Closed reports whether the session has been closed. It never fails.
func (s *Session) Closed() bool {
	return s.closed
}

// Close permanently closes the session and releases its certificate
// blobs. Closing an already closed session is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.certs.release()
	s.logger.Debugf("nsm: session %s closed", s.moduleID)
	return nil
}

// ensureOpen gates every operation except ModuleID and Closed.
func (s *Session) ensureOpen() error {
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// Random returns exactly length uniformly distributed bytes. The length
// must be positive.
func (s *Session) Random(length int) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		s.logger.Error(err)
		return nil, err
	}
	return buf, nil
}

// DescribePCR returns the slot's current value and lock state. Reads
// succeed regardless of lock state.
func (s *Session) DescribePCR(slot int) (PCRValue, error) {
	if err := s.ensureOpen(); err != nil {
		return PCRValue{}, err
	}
	value, err := s.bank.describe(slot)
	if err != nil {
		return PCRValue{}, err
	}
	return PCRValue{Index: slot, Value: value, Locked: s.bank.locked(slot)}, nil
}

// ExtendPCR folds data into the slot's running digest and returns the
// new value. The new value is digest(current || data), so results are
// order dependent and depend on every extend since creation.
func (s *Session) ExtendPCR(slot int, data []byte) (PCRValue, error) {
	if err := s.ensureOpen(); err != nil {
		return PCRValue{}, err
	}
	value, err := s.bank.extend(slot, data, s.digest)
	if err != nil {
		return PCRValue{}, err
	}
	return PCRValue{Index: slot, Value: value, Locked: false}, nil
}

// LockPCR locks a single slot, making further extends fail with
// ErrSlotLocked. Locking a locked slot is not an error.
func (s *Session) LockPCR(slot int) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.bank.lock(slot)
}

// LockPCRs locks every slot with index below limit. Limits beyond the
// bank size lock all slots; zero locks nothing.
func (s *Session) LockPCRs(limit int) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if limit < 0 {
		return ErrInvalidLength
	}
	s.bank.lockRange(limit)
	return nil
}

// LockedFlags returns exactly length bytes where byte i is 1 if slot i
// is locked and i addresses a real slot, else 0.
func (s *Session) LockedFlags(length int) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, ErrInvalidLength
	}
	return s.bank.lockedFlags(length), nil
}

// LockedPCRs returns the indices of all locked slots in ascending order.
func (s *Session) LockedPCRs() ([]int, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	return s.bank.lockedSlots(), nil
}

// PCRs returns every slot's value and lock state in index order.
func (s *Session) PCRs() ([]PCRValue, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	values := make([]PCRValue, PCRSlots)
	for i := 0; i < PCRSlots; i++ {
		value, err := s.bank.describe(i)
		if err != nil {
			return nil, err
		}
		values[i] = PCRValue{Index: i, Value: value, Locked: s.bank.locked(i)}
	}
	return values, nil
}

// SetCertificate replaces the slot's content wholesale. There is no lock
// concept for certificates; overwriting is unconditional.
func (s *Session) SetCertificate(slot int, data []byte) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.certs.set(slot, data)
}

// DescribeCertificate returns the slot's current content.
func (s *Session) DescribeCertificate(slot int) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	return s.certs.describe(slot)
}

// RemoveCertificate clears the slot's content.
func (s *Session) RemoveCertificate(slot int) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.certs.remove(slot)
}

// FirstCertificate returns the content of the lowest occupied slot, or
// nil when every slot is empty. Attestation documents carry it as the
// leaf certificate.
func (s *Session) FirstCertificate() ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	return s.certs.first(), nil
}

// AttestationDigest digests the concatenation of all 32 slot values in
// index order. It is a pure function of the bank state: lock state and
// certificates do not affect it.
func (s *Session) AttestationDigest() ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	sum := s.digest.Sum(s.bank.concat())
	out := make([]byte, DigestLen)
	copy(out, sum[:])
	return out, nil
}

// Describe reports the module's identity, capacities, locked slots, and
// occupied certificate count.
func (s *Session) Describe() (DeviceInfo, error) {
	if err := s.ensureOpen(); err != nil {
		return DeviceInfo{}, err
	}
	return DeviceInfo{
		ModuleID:         s.moduleID,
		PCRSlots:         PCRSlots,
		CertificateSlots: CertificateSlots,
		LockedPCRs:       s.bank.lockedSlots(),
		Certificates:     s.certs.count(),
		Digest:           s.digest.Algorithm(),
	}, nil
}
