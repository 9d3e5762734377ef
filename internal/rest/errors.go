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
	"log"
	"net/http"

	"github.com/jeremyhahn/go-nsm/pkg/nsm"
)

var (
	// ErrInvalidRequest indicates a malformed request body or parameter.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInternalError indicates an unexpected server-side failure.
	ErrInternalError = errors.New("internal server error")
)

// mapErrorToStatusCode maps device and registry errors to HTTP status codes.
func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, nsm.ErrInvalidSlot),
		errors.Is(err, nsm.ErrInvalidLength),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, nsm.ErrSlotLocked):
		return http.StatusConflict
	case errors.Is(err, nsm.ErrCertMissing),
		errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, nsm.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, nsm.ErrNoMemory):
		return http.StatusInsufficientStorage
	case errors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes an error response with the status code and device
// code derived from err.
func handleError(w http.ResponseWriter, err error) {
	status := mapErrorToStatusCode(err)
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  status,
	}
	if code := nsm.ErrorCode(err); code != nsm.CodeOK && code != nsm.CodeUnknown {
		resp.DeviceCode = code.String()
	}
	writeJSON(w, resp, status)
}

// writeError writes a bare error response with the given status code.
func writeError(w http.ResponseWriter, err error, statusCode int) {
	writeJSON(w, ErrorResponse{Error: err.Error(), Code: statusCode}, statusCode)
}

// writeErrorWithMessage writes an error response with an additional
// human-readable message.
func writeErrorWithMessage(w http.ResponseWriter, err error, message string, statusCode int) {
	writeJSON(w, ErrorResponse{
		Error:   err.Error(),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}
