// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup
// to receive events about dot generation, encoding, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, which avoids import
// cycles and keeps the library packages free of any metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEncodeHooks(&myEncodeHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Encode().OnEncodeStart(ctx, "plt", len(set.Dots))
//	// ... write batches ...
//	observability.Encode().OnEncodeComplete(ctx, "plt", flushed, bytes, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Generate Hooks
// =============================================================================

// GenerateHooks receives events from the dot generator.
type GenerateHooks interface {
	OnGenerateStart(ctx context.Context, policy string, width, height int)
	OnGenerateComplete(ctx context.Context, policy string, dots int, duration time.Duration, err error)
}

// =============================================================================
// Encode Hooks
// =============================================================================

// EncodeHooks receives events from format encoders.
type EncodeHooks interface {
	// OnEncodeStart is called before the header is written.
	OnEncodeStart(ctx context.Context, format string, dots int)

	// OnBatch is called after each batch reached the sink. flushed is the
	// running total of durable dots.
	OnBatch(ctx context.Context, format string, flushed int, bytes int64)

	// OnEncodeComplete is called once, on success or failure.
	OnEncodeComplete(ctx context.Context, format string, flushed int, bytes int64, duration time.Duration, err error)
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

// NoopGenerateHooks is a no-op implementation of GenerateHooks.
type NoopGenerateHooks struct{}

func (NoopGenerateHooks) OnGenerateStart(context.Context, string, int, int) {}
func (NoopGenerateHooks) OnGenerateComplete(context.Context, string, int, time.Duration, error) {
}

// NoopEncodeHooks is a no-op implementation of EncodeHooks.
type NoopEncodeHooks struct{}

func (NoopEncodeHooks) OnEncodeStart(context.Context, string, int)  {}
func (NoopEncodeHooks) OnBatch(context.Context, string, int, int64) {}
func (NoopEncodeHooks) OnEncodeComplete(context.Context, string, int, int64, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	generateHooks GenerateHooks = NoopGenerateHooks{}
	encodeHooks   EncodeHooks   = NoopEncodeHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetGenerateHooks registers custom generation hooks.
// This should be called once at application startup.
func SetGenerateHooks(h GenerateHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		generateHooks = h
	}
}

// SetEncodeHooks registers custom encoder hooks.
// This should be called once at application startup.
func SetEncodeHooks(h EncodeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		encodeHooks = h
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

// Generate returns the registered generation hooks.
func Generate() GenerateHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return generateHooks
}

// Encode returns the registered encoder hooks.
func Encode() EncodeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return encodeHooks
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
	generateHooks = NoopGenerateHooks{}
	encodeHooks = NoopEncodeHooks{}
	cacheHooks = NoopCacheHooks{}
}
