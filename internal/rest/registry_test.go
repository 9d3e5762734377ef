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

package rest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-nsm/pkg/health"
	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

// TestRegistryCreate tests session creation and lookup
func TestRegistryCreate(t *testing.T) {
	registry := NewRegistry(nil, 4)

	session, err := registry.Create()
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, 1, registry.Len())

	found, release, err := registry.Acquire(session.ModuleID())
	require.NoError(t, err)
	defer release()
	assert.Same(t, session, found)
}

// TestRegistryCreate_Capacity tests the session limit
func TestRegistryCreate_Capacity(t *testing.T) {
	registry := NewRegistry(nil, 2)

	_, err := registry.Create()
	require.NoError(t, err)
	_, err = registry.Create()
	require.NoError(t, err)

	_, err = registry.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Equal(t, 2, registry.Len())
}

// TestRegistryCreate_DefaultLimit tests that non-positive limits select the default
func TestRegistryCreate_DefaultLimit(t *testing.T) {
	registry := NewRegistry(nil, 0)
	assert.Equal(t, defaultMaxSessions, registry.max)

	registry = NewRegistry(nil, -5)
	assert.Equal(t, defaultMaxSessions, registry.max)
}

// TestRegistryAcquire_Unknown tests acquiring a missing session
func TestRegistryAcquire_Unknown(t *testing.T) {
	registry := NewRegistry(nil, 4)

	_, _, err := registry.Acquire("deadbeef")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// TestRegistryClose tests closing and removal
func TestRegistryClose(t *testing.T) {
	registry := NewRegistry(nil, 4)
	session, err := registry.Create()
	require.NoError(t, err)
	id := session.ModuleID()

	require.NoError(t, registry.Close(id))
	assert.True(t, session.Closed())
	assert.Equal(t, 0, registry.Len())

	// Second close reports the session as gone
	assert.ErrorIs(t, registry.Close(id), ErrSessionNotFound)
}

// TestRegistryClose_FreesCapacity tests that closing makes room for new sessions
func TestRegistryClose_FreesCapacity(t *testing.T) {
	registry := NewRegistry(nil, 1)
	session, err := registry.Create()
	require.NoError(t, err)

	_, err = registry.Create()
	require.ErrorIs(t, err, ErrTooManySessions)

	require.NoError(t, registry.Close(session.ModuleID()))
	_, err = registry.Create()
	assert.NoError(t, err)
}

// TestRegistryList tests listing with stable ordering
func TestRegistryList(t *testing.T) {
	registry := NewRegistry(nil, 4)
	for i := 0; i < 3; i++ {
		_, err := registry.Create()
		require.NoError(t, err)
	}

	infos := registry.List()
	require.Len(t, infos, 3)
	for i := 1; i < len(infos); i++ {
		assert.Less(t, infos[i-1].ModuleID, infos[i].ModuleID)
	}
}

// TestRegistryCloseAll tests bulk shutdown
func TestRegistryCloseAll(t *testing.T) {
	registry := NewRegistry(nil, 8)
	sessions := make([]*nsm.Session, 0, 3)
	for i := 0; i < 3; i++ {
		session, err := registry.Create()
		require.NoError(t, err)
		sessions = append(sessions, session)
	}

	registry.CloseAll()
	assert.Equal(t, 0, registry.Len())
	for _, session := range sessions {
		assert.True(t, session.Closed())
	}
}

// TestRegistryCheck tests the capacity health check
func TestRegistryCheck(t *testing.T) {
	registry := NewRegistry(nil, 2)

	result := registry.Check(context.Background())
	assert.Equal(t, "sessions", result.Name)
	assert.Equal(t, health.StatusHealthy, result.Status)

	_, err := registry.Create()
	require.NoError(t, err)
	_, err = registry.Create()
	require.NoError(t, err)

	result = registry.Check(context.Background())
	assert.Equal(t, health.StatusDegraded, result.Status)
}

// TestRegistryCustomParams tests that sessions inherit registry params
func TestRegistryCustomParams(t *testing.T) {
	registry := NewRegistry(&nsm.Params{MaxCertBytes: 4}, 4)
	session, err := registry.Create()
	require.NoError(t, err)

	err = session.SetCertificate(0, []byte("too large for budget"))
	assert.ErrorIs(t, err, nsm.ErrNoMemory)
}

// TestRegistryConcurrentAccess tests that Acquire serializes device access
func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry(nil, 4)
	session, err := registry.Create()
	require.NoError(t, err)
	id := session.ModuleID()

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s, release, err := registry.Acquire(id)
			if err != nil {
				return
			}
			defer release()
			_, _ = s.ExtendPCR(0, []byte("step"))
		}()
	}
	wg.Wait()

	// Same payload each time, so the final value is order-independent
	s, release, err := registry.Acquire(id)
	require.NoError(t, err)
	defer release()

	want, err := nsm.New(&nsm.Params{})
	require.NoError(t, err)
	for i := 0; i < workers; i++ {
		_, err := want.ExtendPCR(0, []byte("step"))
		require.NoError(t, err)
	}
	got, err := s.DescribePCR(0)
	require.NoError(t, err)
	expected, err := want.DescribePCR(0)
	require.NoError(t, err)
	assert.Equal(t, expected.Value, got.Value)
}
