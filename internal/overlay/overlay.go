// Package overlay defines the overlays shown above the main display and the
// z-ordered stack that holds them.
package overlay

import (
	"slices"
	"sync"
)

// Kind identifies the closed set of overlay variants.
type Kind int

const (
	KindScreen Kind = iota
	KindNotification
	KindDialog
)

func (k Kind) String() string {
	switch k {
	case KindNotification:
		return "notification"
	case KindDialog:
		return "dialog"
	default:
		return "screen"
	}
}

// Overlay is anything that can sit on the overlay stack.
type Overlay interface {
	Kind() Kind
	Name() string
}

// Canceler is implemented by overlays that owe their owner an outcome.
// Cancel is called when such an overlay is taken off the stack by someone
// else, and must not block.
type Canceler interface {
	Cancel()
}

// Plain is an overlay with no behaviour of its own, such as a menu or a
// volume bar owned by the host.
type Plain struct {
	name string
}

// NewPlain creates a plain overlay.
func NewPlain(name string) *Plain {
	return &Plain{name: name}
}

func (p *Plain) Kind() Kind   { return KindScreen }
func (p *Plain) Name() string { return p.name }

// Stack is the z-ordered list of overlays, bottom first.
type Stack struct {
	mu    sync.RWMutex
	items []Overlay
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push puts o on top. Pushing an overlay that is already present is a no-op.
func (s *Stack) Push(o Overlay) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.items, o) {
		return false
	}
	s.items = append(s.items, o)
	return true
}

// Remove takes o off the stack, reporting whether it was present.
func (s *Stack) Remove(o Overlay) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.items, o)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Contains reports whether o is on the stack.
func (s *Stack) Contains(o Overlay) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.items, o)
}

// Top returns the topmost overlay, or nil.
func (s *Stack) Top() Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

// TopOf returns the topmost overlay of the given kind, or nil.
func (s *Stack) TopOf(kind Kind) Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].Kind() == kind {
			return s.items[i]
		}
	}
	return nil
}

// List returns a snapshot of the stack, bottom first.
func (s *Stack) List() []Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len returns the number of overlays.
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
