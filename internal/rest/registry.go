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
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jeremyhahn/go-nsm/pkg/health"
	"github.com/jeremyhahn/go-nsm/pkg/metrics"
	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

const defaultMaxSessions = 64

var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions indicates the registry is at capacity.
	ErrTooManySessions = errors.New("too many sessions")
)

// managedSession pairs a device session with a lock serializing the
// device operations issued against it.
type managedSession struct {
	mu      sync.Mutex
	session *nsm.Session
	created time.Time
}

// Registry tracks open device sessions keyed by module identity.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*managedSession
	params   nsm.Params
	max      int
}

// NewRegistry creates a session registry. Sessions are created with
// params (nil for defaults). max bounds the number of concurrently open
// sessions; values below one select the default limit.
func NewRegistry(params *nsm.Params, max int) *Registry {
	var p nsm.Params
	if params != nil {
		p = *params
	}
	if max < 1 {
		max = defaultMaxSessions
	}
	return &Registry{
		sessions: make(map[string]*managedSession),
		params:   p,
		max:      max,
	}
}

// Create opens a new device session and registers it under its module
// identity.
func (r *Registry) Create() (*nsm.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.max {
		return nil, ErrTooManySessions
	}

	params := r.params
	session, err := nsm.New(&params)
	if err != nil {
		return nil, err
	}
	id := session.ModuleID()
	if _, exists := r.sessions[id]; exists {
		_ = session.Close()
		return nil, fmt.Errorf("module identity collision: %s", id)
	}
	r.sessions[id] = &managedSession{
		session: session,
		created: time.Now(),
	}
	metrics.SetActiveSessions(float64(len(r.sessions)))
	return session, nil
}

// Acquire looks up a session and locks it for exclusive use. The caller
// must invoke the returned release function when done.
func (r *Registry) Acquire(id string) (*nsm.Session, func(), error) {
	r.mu.Lock()
	ms, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	ms.mu.Lock()
	return ms.session, ms.mu.Unlock, nil
}

// Close removes a session from the registry and closes it. In-flight
// operations against the session complete before the device shuts down.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	ms, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	metrics.SetActiveSessions(float64(len(r.sessions)))
	r.mu.Unlock()

	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.session.Close()
}

// List describes every registered session, ordered by module identity.
func (r *Registry) List() []nsm.DeviceInfo {
	r.mu.Lock()
	managed := make([]*managedSession, 0, len(r.sessions))
	for _, ms := range r.sessions {
		managed = append(managed, ms)
	}
	r.mu.Unlock()

	infos := make([]nsm.DeviceInfo, 0, len(managed))
	for _, ms := range managed {
		ms.mu.Lock()
		info, err := ms.session.Describe()
		ms.mu.Unlock()
		if err == nil {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ModuleID < infos[j].ModuleID
	})
	return infos
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes and removes every registered session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Close(id)
	}
}

// Check reports registry capacity as a health check result. The check
// degrades when the registry is full; new sessions are refused until an
// existing one closes.
func (r *Registry) Check(_ context.Context) health.CheckResult {
	open := r.Len()
	result := health.CheckResult{
		Name:    "sessions",
		Status:  health.StatusHealthy,
		Message: fmt.Sprintf("%d of %d sessions open", open, r.max),
	}
	if open >= r.max {
		result.Status = health.StatusDegraded
		result.Message = fmt.Sprintf("session limit reached (%d)", r.max)
	}
	return result
}
