// Package cli implements the stipple command-line interface.
//
// This package provides commands for converting images into dot drawings,
// inspecting generated dot sets, listing parameter presets, and managing the
// dot-set cache. The CLI is built using cobra and supports verbose logging
// via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - render: Convert an image into EPS, PLT, SVG, DXF, PNG or BMP files
//   - dots: Generate only and print dot statistics
//   - presets: List built-in and user parameter presets
//   - cache: Manage the dot-set cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stipple/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
// The returned progress should call done when the operation completes.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// The duration is rounded to the nearest millisecond.
// Example output: "Generated 48210 dots (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// ctxKey is the type for context keys used in this package.
// Using a distinct type prevents collisions with other packages.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
// The logger can be retrieved later with loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
// This ensures commands always have a valid logger even if context setup fails.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Debug hooks
// =============================================================================

// debugHooks logs pipeline events at debug level.
type debugHooks struct {
	logger *log.Logger
}

// registerDebugHooks installs debugHooks for generation, encoding and cache events.
func registerDebugHooks(l *log.Logger) {
	h := debugHooks{logger: l}
	observability.SetGenerateHooks(h)
	observability.SetEncodeHooks(h)
	observability.SetCacheHooks(h)
}

func (h debugHooks) OnGenerateStart(_ context.Context, policy string, width, height int) {
	h.logger.Debug("generate start", "policy", policy, "width", width, "height", height)
}

func (h debugHooks) OnGenerateComplete(_ context.Context, policy string, dots int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("generate failed", "policy", policy, "err", err)
		return
	}
	h.logger.Debug("generate done", "policy", policy, "dots", dots, "duration", d)
}

func (h debugHooks) OnEncodeStart(_ context.Context, format string, dots int) {
	h.logger.Debug("encode start", "format", format, "dots", dots)
}

func (h debugHooks) OnBatch(_ context.Context, format string, flushed int, bytes int64) {
	h.logger.Debug("batch flushed", "format", format, "flushed", flushed, "bytes", bytes)
}

func (h debugHooks) OnEncodeComplete(_ context.Context, format string, flushed int, bytes int64, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("encode failed", "format", format, "flushed", flushed, "err", err)
		return
	}
	h.logger.Debug("encode done", "format", format, "bytes", bytes, "duration", d)
}

func (h debugHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h debugHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h debugHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}
