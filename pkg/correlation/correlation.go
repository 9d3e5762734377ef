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

// Package correlation propagates request-scoped correlation IDs through
// context values and the standard tracing headers.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

// Header names recognized by the HTTP middleware.
const (
	// CorrelationIDHeader carries the correlation ID across services.
	CorrelationIDHeader = "X-Correlation-ID"

	// RequestIDHeader is accepted as a fallback when no correlation
	// header is present.
	RequestIDHeader = "X-Request-ID"
)

// contextKey is unexported so only this package can install the value.
type contextKey struct{}

// WithCorrelationID returns a context carrying the correlation ID. A
// nil parent is treated as context.Background.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// GetCorrelationID returns the correlation ID stored in ctx, or the
// empty string when none is present.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// NewID returns a fresh UUID v4 correlation ID.
func NewID() string {
	return uuid.New().String()
}
