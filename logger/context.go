package logger

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	// callCounterKey is the context key for tracking outbound HTTP call count per request
	callCounterKey contextKey = "http_call_counter"
	// callElapsedKey is the context key for tracking total outbound HTTP elapsed time per request
	callElapsedKey contextKey = "http_call_elapsed_nanos"
	// severityHookKey stores a callback for request-level severity tracking
	severityHookKey contextKey = "severity_hook"
)

// WithCallTracking creates a new context with an outbound HTTP call counter and
// elapsed time tracker. Callers that fan out several API calls under one
// context can read the aggregates back when the work completes.
func WithCallTracking(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, callCounterKey, &counter)
	ctx = context.WithValue(ctx, callElapsedKey, &elapsed)
	return ctx
}

// WithSeverityHook attaches a severity hook to the context. The hook is used by the
// logging adapter to propagate WARN/ERROR logs back to the caller for routing.
func WithSeverityHook(ctx context.Context, hook func(zerolog.Level)) context.Context {
	if ctx == nil || hook == nil {
		return ctx
	}
	return context.WithValue(ctx, severityHookKey, hook)
}

// severityHookFromContext retrieves the severity hook from the context when present.
func severityHookFromContext(ctx context.Context) func(zerolog.Level) {
	if ctx == nil {
		return nil
	}
	if hook, ok := ctx.Value(severityHookKey).(func(zerolog.Level)); ok {
		return hook
	}
	return nil
}

// IncrementCallCount increments the outbound HTTP call counter in the context
func IncrementCallCount(ctx context.Context) {
	if counter, ok := ctx.Value(callCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// CallCountFromContext returns the current outbound HTTP call count from the context
func CallCountFromContext(ctx context.Context) int64 {
	if counter, ok := ctx.Value(callCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddCallElapsed adds elapsed nanoseconds to the outbound HTTP elapsed time in the context
func AddCallElapsed(ctx context.Context, nanos int64) {
	if elapsed, ok := ctx.Value(callElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, nanos)
	}
}

// CallElapsedFromContext returns the current outbound HTTP elapsed time in nanoseconds from the context
func CallElapsedFromContext(ctx context.Context) int64 {
	if elapsed, ok := ctx.Value(callElapsedKey).(*int64); ok && elapsed != nil {
		return atomic.LoadInt64(elapsed)
	}
	return 0
}
