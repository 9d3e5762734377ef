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
	"math/rand/v2"
	"regexp"
	"testing"

	"github.com/jeremyhahn/go-nsm/pkg/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaults(t *testing.T) {
	session, err := New(nil)
	require.NoError(t, err)

	assert.False(t, session.Closed())
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), session.ModuleID())
}

func TestModuleIDUniquePerSession(t *testing.T) {
	first, err := New(nil)
	require.NoError(t, err)
	second, err := New(nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ModuleID(), second.ModuleID())
}

func TestModuleIDDeterministicWithInjectedSource(t *testing.T) {
	first, err := New(&Params{Random: rand.NewChaCha8([32]byte{9})})
	require.NoError(t, err)
	second, err := New(&Params{Random: rand.NewChaCha8([32]byte{9})})
	require.NoError(t, err)

	assert.Equal(t, first.ModuleID(), second.ModuleID())
}

func TestRandom(t *testing.T) {
	session := newTestSession(t)

	buf, err := session.Random(64)
	require.NoError(t, err)
	assert.Len(t, buf, 64)

	// Independent draws from the stream.
	again, err := session.Random(64)
	require.NoError(t, err)
	assert.NotEqual(t, buf, again)
}

func TestRandomInvalidLength(t *testing.T) {
	session := newTestSession(t)

	for _, length := range []int{0, -1, -32} {
		_, err := session.Random(length)
		assert.ErrorIs(t, err, ErrInvalidLength)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	session := newTestSession(t)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	assert.True(t, session.Closed())
}

func TestModuleIDReadableAfterClose(t *testing.T) {
	session := newTestSession(t)
	id := session.ModuleID()

	require.NoError(t, session.Close())

	assert.Equal(t, id, session.ModuleID())
	assert.True(t, session.Closed())
}

func TestOperationsFailAfterClose(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.Close())

	tests := []struct {
		name string
		op   func() error
	}{
		{"random", func() error { _, err := session.Random(16); return err }},
		{"describe pcr", func() error { _, err := session.DescribePCR(0); return err }},
		{"extend pcr", func() error { _, err := session.ExtendPCR(0, []byte("x")); return err }},
		{"lock pcr", func() error { return session.LockPCR(0) }},
		{"lock pcrs", func() error { return session.LockPCRs(4) }},
		{"locked flags", func() error { _, err := session.LockedFlags(32); return err }},
		{"locked pcrs", func() error { _, err := session.LockedPCRs(); return err }},
		{"pcrs", func() error { _, err := session.PCRs(); return err }},
		{"set certificate", func() error { return session.SetCertificate(0, []byte("x")) }},
		{"describe certificate", func() error { _, err := session.DescribeCertificate(0); return err }},
		{"remove certificate", func() error { return session.RemoveCertificate(0) }},
		{"first certificate", func() error { _, err := session.FirstCertificate(); return err }},
		{"attestation digest", func() error { _, err := session.AttestationDigest(); return err }},
		{"describe", func() error { _, err := session.Describe(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.op(), ErrSessionClosed)
		})
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	first := newTestSession(t)
	second := newTestSession(t)

	_, err := first.ExtendPCR(0, []byte("only in first"))
	require.NoError(t, err)
	require.NoError(t, first.LockPCR(1))
	require.NoError(t, first.SetCertificate(0, []byte("cert")))

	zero := make([]byte, DigestLen)
	pcr, err := second.DescribePCR(0)
	require.NoError(t, err)
	assert.Equal(t, zero, pcr.Value)

	locked, err := second.LockedPCRs()
	require.NoError(t, err)
	assert.Empty(t, locked)

	_, err = second.DescribeCertificate(0)
	assert.ErrorIs(t, err, ErrCertMissing)
}

func TestDescribe(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.LockPCR(3))
	require.NoError(t, session.LockPCR(1))
	require.NoError(t, session.SetCertificate(0, []byte("device cert")))
	require.NoError(t, session.SetCertificate(2, []byte("intermediate")))

	info, err := session.Describe()
	require.NoError(t, err)

	assert.Equal(t, session.ModuleID(), info.ModuleID)
	assert.Equal(t, PCRSlots, info.PCRSlots)
	assert.Equal(t, CertificateSlots, info.CertificateSlots)
	assert.Equal(t, []int{1, 3}, info.LockedPCRs)
	assert.Equal(t, 2, info.Certificates)
	assert.Equal(t, digest.AlgorithmMix256, info.Digest)
}

func TestPCRsSnapshot(t *testing.T) {
	session := newTestSession(t)
	extended, err := session.ExtendPCR(4, []byte("state"))
	require.NoError(t, err)
	require.NoError(t, session.LockPCR(4))

	pcrs, err := session.PCRs()
	require.NoError(t, err)
	require.Len(t, pcrs, PCRSlots)

	assert.Equal(t, extended.Value, pcrs[4].Value)
	assert.True(t, pcrs[4].Locked)
	assert.False(t, pcrs[5].Locked)
}

func TestCustomDigestAlgorithm(t *testing.T) {
	session, err := New(&Params{
		Digest: digest.SHA256{},
		Random: rand.NewChaCha8([32]byte{5}),
	})
	require.NoError(t, err)

	info, err := session.Describe()
	require.NoError(t, err)
	assert.Equal(t, digest.AlgorithmSHA256, info.Digest)

	// Extension runs through the injected digest.
	mixSession := newTestSession(t)
	shaPCR, err := session.ExtendPCR(0, []byte("payload"))
	require.NoError(t, err)
	mixPCR, err := mixSession.ExtendPCR(0, []byte("payload"))
	require.NoError(t, err)
	assert.NotEqual(t, shaPCR.Value, mixPCR.Value)
}

func TestEndToEndScenario(t *testing.T) {
	session := newTestSession(t)

	_, err := session.ExtendPCR(0, []byte("boot"))
	require.NoError(t, err)

	require.NoError(t, session.LockPCR(0))

	_, err = session.ExtendPCR(0, []byte("again"))
	assert.ErrorIs(t, err, ErrSlotLocked)

	require.NoError(t, session.SetCertificate(0, []byte("0123456789")))

	sum, err := session.AttestationDigest()
	require.NoError(t, err)
	assert.Len(t, sum, DigestLen)

	require.NoError(t, session.Close())

	_, err = session.ExtendPCR(0, []byte("x"))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, CodeOK},
		{"invalid slot", ErrInvalidSlot, CodeInvalidSlot},
		{"locked", ErrSlotLocked, CodeLocked},
		{"invalid length", ErrInvalidLength, CodeInvalidLength},
		{"cert missing", ErrCertMissing, CodeCertMissing},
		{"no memory", ErrNoMemory, CodeNoMemory},
		{"closed", ErrSessionClosed, CodeClosed},
		{"unknown", assert.AnError, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestCodeRoundTrip(t *testing.T) {
	for _, code := range []Code{
		CodeInvalidSlot, CodeLocked, CodeInvalidLength,
		CodeCertMissing, CodeNoMemory, CodeClosed,
	} {
		require.NotNil(t, code.Err())
		assert.Equal(t, code, ErrorCode(code.Err()))
	}
	assert.Nil(t, CodeOK.Err())
	assert.Nil(t, CodeUnknown.Err())
}
