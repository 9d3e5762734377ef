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

package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMiddleware(t *testing.T) {
	Enable()

	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()
	ActiveConnections.Reset()

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	// Outside a chi router the route label falls back to the raw path
	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/test", "200")); got != 1 {
		t.Errorf("Expected 1 request in series (GET, /test, 200), got %v", got)
	}
	if active := testutil.ToFloat64(ActiveConnections.WithLabelValues(ProtocolHTTP)); active != 0 {
		t.Errorf("Expected 0 active connections after request, got %v", active)
	}
}

func TestHTTPMiddlewareRoutePattern(t *testing.T) {
	Enable()

	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	router := chi.NewRouter()
	router.Use(HTTPMiddleware)
	router.Get("/sessions/{id}/pcrs/{index}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Two requests to distinct URLs that match the same route
	for _, target := range []string{"/sessions/abc123/pcrs/7", "/sessions/def456/pcrs/0"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200 for %s, got %d", target, rec.Code)
		}
	}

	series := HTTPRequestsTotal.WithLabelValues("GET", "/sessions/{id}/pcrs/{index}", "200")
	if got := testutil.ToFloat64(series); got != 2 {
		t.Errorf("Expected both requests in the pattern series, got %v", got)
	}
	if count := testutil.CollectAndCount(HTTPRequestsTotal); count != 1 {
		t.Errorf("Expected a single series across both requests, got %d", count)
	}
}

func TestHTTPMiddlewareStatusCodes(t *testing.T) {
	Enable()

	statusCodes := []int{
		http.StatusOK,
		http.StatusCreated,
		http.StatusNotFound,
		http.StatusInternalServerError,
	}

	for _, statusCode := range statusCodes {
		t.Run(fmt.Sprintf("%d", statusCode), func(t *testing.T) {
			HTTPRequestsTotal.Reset()

			handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(statusCode)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("POST", "/test", nil))

			if rec.Code != statusCode {
				t.Errorf("Expected status %d, got %d", statusCode, rec.Code)
			}

			series := HTTPRequestsTotal.WithLabelValues("POST", "/test", fmt.Sprintf("%d", statusCode))
			if got := testutil.ToFloat64(series); got != 1 {
				t.Errorf("Expected status %d recorded in its series, got %v", statusCode, got)
			}
		})
	}
}

func TestHTTPMiddlewareWhenDisabled(t *testing.T) {
	Disable()
	defer Enable()

	HTTPRequestsTotal.Reset()

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	// The request still goes through, nothing is recorded
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if count := testutil.CollectAndCount(HTTPRequestsTotal); count != 0 {
		t.Errorf("Expected no requests recorded while disabled, got %d", count)
	}
}

func TestRoutePatternFallback(t *testing.T) {
	req := httptest.NewRequest("GET", "/no/router/here", nil)
	if got := routePattern(req); got != "/no/router/here" {
		t.Errorf("Expected raw path fallback, got %q", got)
	}
}

func TestResponseWriterFirstHeaderWins(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapper := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	wrapper.WriteHeader(http.StatusCreated)
	wrapper.WriteHeader(http.StatusBadRequest)

	if wrapper.statusCode != http.StatusCreated {
		t.Errorf("Expected first status %d to stick, got %d", http.StatusCreated, wrapper.statusCode)
	}

	data := []byte("test data")
	n, err := wrapper.Write(data)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected %d bytes written, got %d", len(data), n)
	}
}

func TestResponseWriterImplicitOK(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapper := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	// A body write with no explicit WriteHeader records a 200
	_, _ = wrapper.Write([]byte("test"))

	if wrapper.statusCode != http.StatusOK {
		t.Errorf("Expected implicit status %d, got %d", http.StatusOK, wrapper.statusCode)
	}
	if !wrapper.written {
		t.Error("Expected writer to be marked written")
	}
}

func BenchmarkHTTPMiddleware(b *testing.B) {
	Enable()

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}
}
