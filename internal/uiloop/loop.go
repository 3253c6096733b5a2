// Package uiloop provides the UI owner mark and a headless UI loop.
//
// Screen state is only ever touched by one goroutine, the UI owner. Hosts
// (the GTK main loop, the bubbletea program, or Loop below) mark the contexts
// they hand to posted work with their Owner, and code that must run on the
// owner checks the mark with Owns.
package uiloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

type ownerKey struct{}

// Owner identifies one UI-owning goroutine.
type Owner struct {
	name string
}

// NewOwner creates a new owner mark.
func NewOwner(name string) *Owner {
	return &Owner{name: name}
}

// Name returns the owner's name.
func (o *Owner) Name() string {
	return o.name
}

// Enter returns a context carrying the owner mark. Only the owning goroutine
// should call it.
func (o *Owner) Enter(ctx context.Context) context.Context {
	return context.WithValue(ctx, ownerKey{}, o)
}

// Owns reports whether ctx carries this owner's mark.
func (o *Owner) Owns(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(ownerKey{}).(*Owner)
	return v == o
}

// ErrLoopStopped is returned when work is posted to a loop that has exited.
var ErrLoopStopped = errors.New("ui loop stopped")

// Loop is a headless UI owner: a single goroutine running posted closures in
// order. Dispatch never blocks.
type Loop struct {
	owner  *Owner
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []func(ctx context.Context)
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

// NewLoop creates a loop. Call Run to start it.
func NewLoop(logger *slog.Logger) *Loop {
	return NewNamedLoop("headless", logger)
}

// NewNamedLoop creates a loop whose owner carries name.
func NewNamedLoop(name string, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		owner:  NewOwner(name),
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Owner returns the loop's owner mark.
func (l *Loop) Owner() *Owner {
	return l.owner
}

// Dispatch posts fn to run on the loop goroutine.
func (l *Loop) Dispatch(fn func(ctx context.Context)) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.logger.Debug("dropping task posted to stopped loop")
		return
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do posts fn and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context)) error {
	finished := make(chan struct{})
	l.Dispatch(func(ctx context.Context) {
		defer close(finished)
		fn(ctx)
	})

	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted work until ctx is cancelled. Tasks still pending when
// ctx is cancelled are discarded.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	owned := l.owner.Enter(ctx)

	for {
		l.mu.Lock()
		tasks := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		for _, fn := range tasks {
			if ctx.Err() != nil {
				break
			}
			fn(owned)
		}

		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.tasks = nil
			l.mu.Unlock()
			return
		case <-l.wake:
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
