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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

// TestMapErrorToStatusCode tests the error to HTTP status mapping
func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid slot", nsm.ErrInvalidSlot, http.StatusBadRequest},
		{"invalid length", nsm.ErrInvalidLength, http.StatusBadRequest},
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest},
		{"wrapped invalid slot", fmt.Errorf("%w: %q", nsm.ErrInvalidSlot, "abc"), http.StatusBadRequest},
		{"locked", nsm.ErrSlotLocked, http.StatusConflict},
		{"cert missing", nsm.ErrCertMissing, http.StatusNotFound},
		{"session not found", ErrSessionNotFound, http.StatusNotFound},
		{"session closed", nsm.ErrSessionClosed, http.StatusGone},
		{"no memory", nsm.ErrNoMemory, http.StatusInsufficientStorage},
		{"too many sessions", ErrTooManySessions, http.StatusServiceUnavailable},
		{"unknown", errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapErrorToStatusCode(tt.err))
		})
	}
}

// TestHandleError_DeviceCode tests that device errors carry their code
func TestHandleError_DeviceCode(t *testing.T) {
	w := httptest.NewRecorder()
	handleError(w, nsm.ErrSlotLocked)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, nsm.ErrSlotLocked.Error(), resp.Error)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "locked", resp.DeviceCode)
}

// TestHandleError_NonDeviceError tests that registry errors omit the device code
func TestHandleError_NonDeviceError(t *testing.T) {
	w := httptest.NewRecorder()
	handleError(w, ErrSessionNotFound)

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Empty(t, resp.DeviceCode)
}

// TestWriteJSON tests content type and body encoding
func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, SuccessResponse{Success: true}, http.StatusCreated)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

// TestWriteErrorWithMessage tests the message field
func TestWriteErrorWithMessage(t *testing.T) {
	w := httptest.NewRecorder()
	writeErrorWithMessage(w, ErrInternalError, "context here", http.StatusInternalServerError)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, ErrInternalError.Error(), resp.Error)
	assert.Equal(t, "context here", resp.Message)
}

// TestWriteError tests the bare error envelope
func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, errors.New("nope"), http.StatusBadRequest)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "nope", resp.Error)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
