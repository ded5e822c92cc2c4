package service

import (
	"context"
	"sync"

	"wageflow/internal/logger"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their front ends
// ─────────────────────────────────────────────────────────────

// EventEmitter receives pipeline lifecycle events ("pipeline:completed",
// "pipeline:failed"). Front ends (CLI, MCP server) decide what to do with them.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// LogEmitter writes every event to the context logger at debug level.
type LogEmitter struct{}

func (LogEmitter) Emit(ctx context.Context, event string, data any) {
	logger.FromContext(ctx).Debug("event emitted", "event", event, "data", data)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Snapshot returns a copy of the recorded events.
func (m *MockEmitter) Snapshot() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.Events...)
}
