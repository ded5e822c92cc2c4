package service

import (
	"context"
	"sync"
	"time"
)

// ExportedRunGuard is an exported alias so _test packages can test the guard.
type ExportedRunGuard = runGuard

// ─────────────────────────────────────────────────────────────
// runGuard: one active run per pipeline name
// ─────────────────────────────────────────────────────────────

// runGuard remembers when each active run started. Manual, cron and
// file-watch runs all go through the same guard.
type runGuard struct {
	mu      sync.Mutex
	started map[string]time.Time
	wg      sync.WaitGroup
}

// TryLock marks name as running. It returns false, along with the start
// time of the active run, when name is already running.
func (g *runGuard) TryLock(name string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started == nil {
		g.started = make(map[string]time.Time)
	}
	if at, ok := g.started[name]; ok {
		return at, false
	}
	g.started[name] = time.Now()
	g.wg.Add(1)
	return time.Time{}, true
}

// Unlock releases name. Must follow a successful TryLock.
func (g *runGuard) Unlock(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.started, name)
	g.wg.Done()
}

// Active returns the names currently running.
func (g *runGuard) Active() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.started))
	for n := range g.started {
		names = append(names, n)
	}
	return names
}

// WaitAll blocks until all current runs complete or ctx is cancelled.
func (g *runGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
