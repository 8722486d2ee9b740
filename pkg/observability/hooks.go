// Package observability lets the binary plug metrics into allocation runs
// without the library packages importing a metrics backend.
//
// Libraries report events through the registered hooks:
//
//	observability.Allocation().OnPlaced(ctx, "42", "1", "atrium", 96.5)
//
// The binary registers real implementations once at startup, before any run:
//
//	observability.SetAllocationHooks(metrics.NewAllocationHooks(reg))
//
// Until then every hook is a no-op.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Hook interfaces
// =============================================================================

// AllocationHooks receives events from allocation runs.
type AllocationHooks interface {
	OnRunStart(ctx context.Context, runID string, projects, clusters int)
	OnPlaced(ctx context.Context, projectID, mapID, cluster string, score float64)
	OnSkipped(ctx context.Context, projectID string)
	// OnRunComplete fires once per run, err is nil on success.
	OnRunComplete(ctx context.Context, runID string, placed, skipped int, duration time.Duration, err error)
}

// CacheHooks receives result cache events. keyType names what was cached,
// e.g. "allocation".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP service. route is the matched
// pattern, not the raw path, to keep label cardinality bounded.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, status int, duration time.Duration)
}

// =============================================================================
// No-op implementations
// =============================================================================

type NoopAllocationHooks struct{}

func (NoopAllocationHooks) OnRunStart(context.Context, string, int, int)              {}
func (NoopAllocationHooks) OnPlaced(context.Context, string, string, string, float64) {}
func (NoopAllocationHooks) OnSkipped(context.Context, string)                         {}
func (NoopAllocationHooks) OnRunComplete(context.Context, string, int, int, time.Duration, error) {
}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Registry
// =============================================================================

var (
	hooksMu         sync.RWMutex
	allocationHooks AllocationHooks = NoopAllocationHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	httpHooks       HTTPHooks       = NoopHTTPHooks{}
)

// SetAllocationHooks registers h. A nil h is ignored.
func SetAllocationHooks(h AllocationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		allocationHooks = h
	}
}

// SetCacheHooks registers h. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers h. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

func Allocation() AllocationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return allocationHooks
}

func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op hooks. Tests call it in cleanup.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	allocationHooks = NoopAllocationHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
