// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about document layout and rendering, watcher checks, and
// cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so library packages never
// import a metrics backend. [Counters] is a ready-made in-memory
// implementation of every hook interface.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    c := observability.NewCounters()
//	    observability.SetDocumentHooks(c)
//	    observability.SetWatchHooks(c)
//	    observability.SetCacheHooks(c)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Document().OnLayoutStart(ctx, docID, "dot")
//	// ... lay out ...
//	observability.Document().OnLayoutComplete(ctx, docID, "dot", duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Document Hooks
// =============================================================================

// DocumentHooks receives events from documents and the render pipeline.
type DocumentHooks interface {
	// Layout events
	OnLayoutStart(ctx context.Context, docID, engine string)
	OnLayoutComplete(ctx context.Context, docID, engine string, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, docID, format string)
	OnRenderComplete(ctx context.Context, docID, format string, size int, duration time.Duration, err error)

	// OnChanged records a Changed notification delivered to subscribers.
	OnChanged(ctx context.Context, docID string, affectsLayout bool)
}

// =============================================================================
// Watch Hooks
// =============================================================================

// WatchHooks receives events from the external change watcher.
type WatchHooks interface {
	// OnCheck records a timestamp check of the watched file.
	OnCheck(ctx context.Context, path string, changed bool)

	// OnNotify records the handler's verdict for a change notification.
	OnNotify(ctx context.Context, path string, retry bool)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopDocumentHooks is a no-op implementation of DocumentHooks.
type NoopDocumentHooks struct{}

func (NoopDocumentHooks) OnLayoutStart(context.Context, string, string) {}
func (NoopDocumentHooks) OnLayoutComplete(context.Context, string, string, time.Duration, error) {
}
func (NoopDocumentHooks) OnRenderStart(context.Context, string, string) {}
func (NoopDocumentHooks) OnRenderComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopDocumentHooks) OnChanged(context.Context, string, bool) {}

// NoopWatchHooks is a no-op implementation of WatchHooks.
type NoopWatchHooks struct{}

func (NoopWatchHooks) OnCheck(context.Context, string, bool)  {}
func (NoopWatchHooks) OnNotify(context.Context, string, bool) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	documentHooks DocumentHooks = NoopDocumentHooks{}
	watchHooks    WatchHooks    = NoopWatchHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetDocumentHooks registers custom document hooks.
// This should be called once at application startup before any document is opened.
func SetDocumentHooks(h DocumentHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		documentHooks = h
	}
}

// SetWatchHooks registers custom watch hooks.
func SetWatchHooks(h WatchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		watchHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Document returns the registered document hooks.
func Document() DocumentHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return documentHooks
}

// Watch returns the registered watch hooks.
func Watch() WatchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return watchHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	documentHooks = NoopDocumentHooks{}
	watchHooks = NoopWatchHooks{}
	cacheHooks = NoopCacheHooks{}
}
