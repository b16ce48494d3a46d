package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Hook is a named start/stop pair. Either function may be nil.
type Hook struct {
	Name  string
	Start func(context.Context) error
	Stop  func(context.Context) error
}

// Lifecycle starts hooks in registration order and stops them in reverse.
type Lifecycle struct {
	mu      sync.Mutex
	hooks   []Hook
	started bool
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Append registers a hook.
func (l *Lifecycle) Append(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, h)
}

// Closer is something that can be closed.
type Closer interface {
	Close() error
}

// RegisterCloser registers a closer to be closed on shutdown.
func (l *Lifecycle) RegisterCloser(name string, c Closer) {
	l.Append(Hook{
		Name: name,
		Stop: func(context.Context) error { return c.Close() },
	})
}

// Start runs every start function. When one fails, the hooks started
// before it are stopped in reverse order.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return errors.New("lifecycle already started")
	}

	for i, h := range l.hooks {
		if h.Start == nil {
			continue
		}
		if err := h.Start(ctx); err != nil {
			l.rollback(ctx, i)
			return fmt.Errorf("starting %s: %w", h.Name, err)
		}
	}

	l.started = true
	return nil
}

// rollback stops the hooks before failedAt in reverse order.
func (l *Lifecycle) rollback(ctx context.Context, failedAt int) {
	for j := failedAt - 1; j >= 0; j-- {
		h := l.hooks[j]
		if h.Stop == nil {
			continue
		}
		if err := h.Stop(ctx); err != nil {
			slog.Warn("lifecycle rollback: stop failed", "hook", h.Name, "error", err)
		}
	}
}

// Stop runs every stop function in reverse order. It does nothing when the
// lifecycle is not started.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return nil
	}

	var errs []error
	for i := len(l.hooks) - 1; i >= 0; i-- {
		h := l.hooks[i]
		if h.Stop == nil {
			continue
		}
		if err := h.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s: %w", h.Name, err))
		}
	}

	l.started = false
	return errors.Join(errs...)
}

// IsStarted returns whether the lifecycle has been started.
func (l *Lifecycle) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}
