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
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndDescribeCertificate(t *testing.T) {
	session := newTestSession(t)
	blob := []byte("-----BEGIN CERTIFICATE-----")

	require.NoError(t, session.SetCertificate(0, blob))

	got, err := session.DescribeCertificate(0)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestDescribeCertificateReturnsCopy(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SetCertificate(1, []byte("immutable")))

	got, err := session.DescribeCertificate(1)
	require.NoError(t, err)
	got[0] = 'X'

	again, err := session.DescribeCertificate(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), again)
}

func TestSetCertificateReplacesContent(t *testing.T) {
	session := newTestSession(t)

	require.NoError(t, session.SetCertificate(2, []byte("first payload")))
	require.NoError(t, session.SetCertificate(2, []byte("second")))

	got, err := session.DescribeCertificate(2)
	require.NoError(t, err)

	// Replacement, never concatenation.
	assert.Equal(t, []byte("second"), got)
}

func TestCertificateValidation(t *testing.T) {
	session := newTestSession(t)

	tests := []struct {
		name string
		slot int
		data []byte
		want error
	}{
		{"negative slot", -1, []byte("x"), ErrInvalidSlot},
		{"slot out of range", CertificateSlots, []byte("x"), ErrInvalidSlot},
		{"nil payload", 0, nil, ErrInvalidLength},
		{"empty payload", 0, []byte{}, ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, session.SetCertificate(tt.slot, tt.data), tt.want)
		})
	}
}

func TestDescribeCertificateMissing(t *testing.T) {
	session := newTestSession(t)

	_, err := session.DescribeCertificate(3)
	assert.ErrorIs(t, err, ErrCertMissing)
}

func TestRemoveCertificate(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SetCertificate(0, []byte("ephemeral")))

	require.NoError(t, session.RemoveCertificate(0))

	_, err := session.DescribeCertificate(0)
	assert.ErrorIs(t, err, ErrCertMissing)

	// Removing again reports the slot as already empty.
	assert.ErrorIs(t, session.RemoveCertificate(0), ErrCertMissing)
}

func TestRemoveCertificateInvalidSlot(t *testing.T) {
	session := newTestSession(t)

	assert.ErrorIs(t, session.RemoveCertificate(-1), ErrInvalidSlot)
	assert.ErrorIs(t, session.RemoveCertificate(CertificateSlots), ErrInvalidSlot)
}

func TestFirstCertificate(t *testing.T) {
	session := newTestSession(t)

	got, err := session.FirstCertificate()
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, session.SetCertificate(2, []byte("intermediate")))
	require.NoError(t, session.SetCertificate(1, []byte("leaf")))

	got, err = session.FirstCertificate()
	require.NoError(t, err)
	assert.Equal(t, []byte("leaf"), got)
}

func TestSetCertificateBudget(t *testing.T) {
	session, err := New(&Params{
		Random:       rand.NewChaCha8([32]byte{2}),
		MaxCertBytes: 16,
	})
	require.NoError(t, err)

	require.NoError(t, session.SetCertificate(0, bytes.Repeat([]byte{0xAA}, 10)))

	// A second blob pushing the total past the budget is rejected and
	// leaves existing content untouched.
	err = session.SetCertificate(1, bytes.Repeat([]byte{0xBB}, 10))
	assert.ErrorIs(t, err, ErrNoMemory)

	got, err := session.DescribeCertificate(0)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xAA}, 10), got)
	_, err = session.DescribeCertificate(1)
	assert.ErrorIs(t, err, ErrCertMissing)

	// Replacing the existing blob reclaims its bytes first.
	require.NoError(t, session.SetCertificate(0, bytes.Repeat([]byte{0xCC}, 16)))
}

func TestSetCertificateBudgetDisabled(t *testing.T) {
	session, err := New(&Params{
		Random:       rand.NewChaCha8([32]byte{3}),
		MaxCertBytes: -1,
	})
	require.NoError(t, err)

	assert.NoError(t, session.SetCertificate(0, bytes.Repeat([]byte{0x01}, 4096)))
	assert.NoError(t, session.SetCertificate(1, bytes.Repeat([]byte{0x02}, 1<<21)))
}

func TestRemoveCertificateReclaimsBudget(t *testing.T) {
	session, err := New(&Params{
		Random:       rand.NewChaCha8([32]byte{4}),
		MaxCertBytes: 8,
	})
	require.NoError(t, err)

	require.NoError(t, session.SetCertificate(0, bytes.Repeat([]byte{0xAA}, 8)))
	require.NoError(t, session.RemoveCertificate(0))
	assert.NoError(t, session.SetCertificate(1, bytes.Repeat([]byte{0xBB}, 8)))
}
