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
	"context"
	"runtime"
	"time"
)

// ResourceCollector periodically samples runtime statistics (goroutine
// count, heap usage, GC pause time, uptime) into the resource gauges.
type ResourceCollector struct {
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	started  time.Time
}

// NewResourceCollector returns a collector that samples at the given
// interval until Stop is called or the parent context is cancelled.
func NewResourceCollector(ctx context.Context, interval time.Duration) *ResourceCollector {
	ctx, cancel := context.WithCancel(ctx)
	return &ResourceCollector{
		ctx:      ctx,
		cancel:   cancel,
		interval: interval,
		started:  time.Now(),
	}
}

// Start samples immediately and then on every tick. It blocks until the
// collector stops, so it is normally run in a goroutine.
func (rc *ResourceCollector) Start() {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	rc.CollectOnce()
	for {
		select {
		case <-rc.ctx.Done():
			return
		case <-ticker.C:
			rc.CollectOnce()
		}
	}
}

// Stop halts the collection loop.
func (rc *ResourceCollector) Stop() {
	rc.cancel()
}

// CollectOnce takes a single sample of the runtime gauges. It is a
// no-op while metrics are disabled.
func (rc *ResourceCollector) CollectOnce() {
	if !IsEnabled() {
		return
	}

	Goroutines.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	MemoryAllocBytes.Set(float64(memStats.Alloc))
	MemorySysBytes.Set(float64(memStats.Sys))
	GCPauseTotalSeconds.Set(float64(memStats.PauseTotalNs) / 1e9)

	ServerUptime.Set(time.Since(rc.started).Seconds())
}

// StartResourceCollector creates a collector and starts it in the
// background. The returned collector stops when Stop is called or ctx
// is cancelled.
func StartResourceCollector(ctx context.Context, interval time.Duration) *ResourceCollector {
	collector := NewResourceCollector(ctx, interval)
	go collector.Start()
	return collector
}
