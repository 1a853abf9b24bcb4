// Package telemetry sends hook events and scores to Langfuse.
//
// Hook-time emission is fire-and-forget: each call posts from its own
// goroutine with a short timeout and the caller never waits. Offline tools
// use the synchronous Ingest and the trace readers instead.
package telemetry

import (
	"context"
	"time"

	"agentkit/internal/config"
)

// Emitter records hook telemetry. Implementations never block the caller
// and never report failures.
type Emitter interface {
	Event(traceID, name string, metadata map[string]any)
	Score(traceID, name string, value float64)
}

// Drainer is implemented by emitters with in-flight background work.
type Drainer interface {
	Drain(ctx context.Context) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Event(string, string, map[string]any) {}
func (Nop) Score(string, string, float64) {}

// New returns a Langfuse client when every credential is configured and
// Nop otherwise.
func New(cfg config.TelemetryConfig) Emitter {
	if !cfg.Enabled() {
		return Nop{}
	}
	return NewClient(cfg)
}

// Drain waits for background posts on e when it supports it.
func Drain(ctx context.Context, e Emitter) error {
	if d, ok := e.(Drainer); ok {
		return d.Drain(ctx)
	}
	return nil
}

// TraceID returns the session id, or a microsecond timestamp when there is
// none so events from one invocation still group together.
func TraceID(sessionID string, now time.Time) string {
	if sessionID != "" {
		return sessionID
	}
	return formatInt(now.UnixMicro())
}
