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
	"net/http"

	"github.com/jeremyhahn/go-nsm/pkg/health"
)

// HealthCheckResponse represents a probe response body.
type HealthCheckResponse struct {
	Status  string               `json:"status"`
	Message string               `json:"message,omitempty"`
	Checks  []health.CheckResult `json:"checks,omitempty"`
}

// LivenessHandler reports whether the service process is alive.
// Kubernetes restarts the pod when this probe fails.
func (h *HandlerContext) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	if h.HealthChecker == nil {
		writeJSON(w, HealthCheckResponse{Status: string(health.StatusHealthy)}, http.StatusOK)
		return
	}

	result := h.HealthChecker.Live(r.Context())
	statusCode := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, HealthCheckResponse{
		Status:  string(result.Status),
		Message: result.Message,
	}, statusCode)
}

// ReadinessHandler reports whether the service can accept requests.
// Degraded results still return 200 so traffic keeps flowing.
func (h *HandlerContext) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if h.HealthChecker == nil {
		writeJSON(w, HealthCheckResponse{Status: string(health.StatusHealthy)}, http.StatusOK)
		return
	}

	results := h.HealthChecker.Ready(r.Context())
	aggregate := health.AggregateStatus(results)
	statusCode := http.StatusOK
	if aggregate == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, HealthCheckResponse{
		Status: string(aggregate),
		Checks: results,
	}, statusCode)
}

// StartupHandler reports whether service initialization has completed.
func (h *HandlerContext) StartupHandler(w http.ResponseWriter, r *http.Request) {
	if h.HealthChecker == nil {
		writeJSON(w, HealthCheckResponse{Status: string(health.StatusHealthy)}, http.StatusOK)
		return
	}

	result := h.HealthChecker.Startup(r.Context())
	statusCode := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, HealthCheckResponse{
		Status:  string(result.Status),
		Message: result.Message,
	}, statusCode)
}
