// Package goroutine runs background work with a concurrency ceiling and
// panic recovery.
package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/entryotp/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager gets a non-positive limit.
const DefaultMaxGoroutine int = 100

// Manager runs functions in goroutines and collects their errors.
type Manager struct {
	wg   sync.WaitGroup
	sema chan struct{}

	mu     sync.Mutex
	errs   []error
	closed bool
}

func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}
	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go runs f unless the manager is closed or full. Both cases are logged and
// f is dropped.
func (g *Manager) Go(ctx context.Context, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		slog.WarnContext(ctx, "goroutine manager is closed, skipping new goroutine")
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		slog.WarnContext(ctx, "maximum goroutine limit reached, failed to start new goroutine")
		return false
	}

	g.wg.Go(func() {
		defer func() { <-g.sema }()
		defer g.recover(ctx)

		if err := f(ctx); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
	})
	return true
}

func (g *Manager) recover(ctx context.Context) {
	rvr := recover()
	if rvr == nil {
		return
	}

	stack := debug.Stack()
	if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
		slog.ErrorContext(ctx, "panic occurred in goroutine", "panic", rvr, "stack", paths)
		return
	}
	slog.ErrorContext(ctx, "panic occurred in goroutine", "panic", rvr, "stack", string(stack))
}

// Wait closes the manager, blocks until running goroutines return and joins
// their errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
