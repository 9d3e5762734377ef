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

package correlation

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		id   string
		want string
	}{
		{
			name: "stores ID in context",
			ctx:  context.Background(),
			id:   "test-correlation-id",
			want: "test-correlation-id",
		},
		{
			name: "nil parent context",
			ctx:  nil,
			id:   "test-correlation-id-2",
			want: "test-correlation-id-2",
		},
		{
			name: "empty ID",
			ctx:  context.Background(),
			id:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithCorrelationID(tt.ctx, tt.id)
			if ctx == nil {
				t.Fatal("WithCorrelationID returned nil context")
			}
			if got := GetCorrelationID(ctx); got != tt.want {
				t.Errorf("GetCorrelationID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "context with ID",
			ctx:  WithCorrelationID(context.Background(), "test-id"),
			want: "test-id",
		},
		{
			name: "context without ID",
			ctx:  context.Background(),
			want: "",
		},
		{
			name: "nil context",
			ctx:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCorrelationID(tt.ctx); got != tt.want {
				t.Errorf("GetCorrelationID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		got := NewID()
		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("NewID() = %v, not a valid UUID: %v", got, err)
		}
		if seen[got] {
			t.Errorf("NewID() returned duplicate ID: %v", got)
		}
		seen[got] = true
	}
}

func TestCorrelationIDSurvivesChildContext(t *testing.T) {
	parent := WithCorrelationID(context.Background(), "parent-correlation-id")

	type childKey string
	child := context.WithValue(parent, childKey("other"), "value")

	if got := GetCorrelationID(child); got != "parent-correlation-id" {
		t.Errorf("GetCorrelationID(child) = %v, want parent-correlation-id", got)
	}
}

func TestContextKeyIsolation(t *testing.T) {
	// A string-typed key with a similar name must not collide with the
	// package's private key.
	type stringKey string
	ctx := context.WithValue(context.Background(), stringKey("correlation-id"), "wrong-value")
	ctx = WithCorrelationID(ctx, "right-value")

	if got := GetCorrelationID(ctx); got != "right-value" {
		t.Errorf("GetCorrelationID() = %v, want right-value", got)
	}
}

func BenchmarkNewID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NewID()
	}
}

func BenchmarkGetCorrelationID(b *testing.B) {
	ctx := WithCorrelationID(context.Background(), NewID())
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		GetCorrelationID(ctx)
	}
}
