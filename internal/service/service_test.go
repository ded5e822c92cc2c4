package service_test

import (
	"context"
	"testing"
	"time"

	"wageflow/internal/service"
)

// ─────────────────────────────────────────────────────────────
// runGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunGuard_TryLock(t *testing.T) {
	var g service.ExportedRunGuard

	if _, ok := g.TryLock("wage-inflation"); !ok {
		t.Fatal("expected first TryLock to succeed")
	}
	since, ok := g.TryLock("wage-inflation")
	if ok {
		t.Fatal("expected second TryLock for same pipeline to fail")
	}
	if since.IsZero() || time.Since(since) < 0 {
		t.Errorf("expected start time of the active run, got %v", since)
	}
	if _, ok := g.TryLock("other"); !ok {
		t.Fatal("expected TryLock for different pipeline to succeed")
	}
	if n := len(g.Active()); n != 2 {
		t.Errorf("expected 2 active runs, got %d", n)
	}
	g.Unlock("wage-inflation")
	g.Unlock("other")

	if _, ok := g.TryLock("wage-inflation"); !ok {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("wage-inflation")
	if n := len(g.Active()); n != 0 {
		t.Errorf("expected no active runs, got %d", n)
	}
}

func TestRunGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunGuard

	if _, ok := g.TryLock("wage-inflation"); !ok {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("wage-inflation")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "pipeline:completed", map[string]string{"foo": "bar"})
	m.Emit(ctx, "pipeline:failed", nil)

	events := m.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Event != "pipeline:completed" {
		t.Errorf("expected 'pipeline:completed', got %q", events[0].Event)
	}
	if events[1].Event != "pipeline:failed" {
		t.Errorf("expected last event 'pipeline:failed', got %q", events[1].Event)
	}
}
