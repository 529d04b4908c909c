package internal

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Lightweight telemetry hooks. Service wiring may register a real emitter
// (metrics backend or a test stub) via RegisterTelemetryEmitter; the default
// is a no-op.

type TelemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl TelemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {}
)

// RegisterTelemetryEmitter registers a custom emitter function. Passing nil
// restores the no-op emitter.
func RegisterTelemetryEmitter(fn TelemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emitter() TelemetryEmitter {
	teleMu.Lock()
	defer teleMu.Unlock()
	return teleImpl
}

// EmitValidationLatency records how long one validation took, in milliseconds.
// name: "schema_validation_latency_ms" with labels {"target": "results|metadata|schema", "valid": "true|false"}
func EmitValidationLatency(ctx context.Context, target string, valid bool, d time.Duration) {
	labels := map[string]string{"target": target, "valid": strconv.FormatBool(valid)}
	emitter()(ctx, "schema_validation_latency_ms", labels, d.Milliseconds())
}

// EmitNameIndexRebuild records the size of a freshly rebuilt name index.
// name: "name_index_rebuild_entries"
func EmitNameIndexRebuild(ctx context.Context, entries int) {
	emitter()(ctx, "name_index_rebuild_entries", map[string]string{}, int64(entries))
}

// EmitSchemaCacheStats records compiled schema cache counters.
// name: "schema_cache_lookups" with label {"result": "hit|miss"}
func EmitSchemaCacheStats(ctx context.Context, hits, misses int64) {
	fn := emitter()
	fn(ctx, "schema_cache_lookups", map[string]string{"result": "hit"}, hits)
	fn(ctx, "schema_cache_lookups", map[string]string{"result": "miss"}, misses)
}
