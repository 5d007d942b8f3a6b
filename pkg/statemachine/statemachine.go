package statemachine

import (
	"reflect"
	"sync"
)

// StateFn is a state in Rob Pike's lexer pattern: the function is the state,
// and running it returns the next state (or nil to terminate).
type StateFn[T any] func(*T) StateFn[T]

// Machine is a small thread-safe wrapper that tracks the current StateFn for
// an entity. It does not run a loop of its own; owners call Step or Set when
// something happened that may move the entity to a new state.
type Machine[T any] struct {
	mu     sync.RWMutex
	entity *T
	state  StateFn[T]
}

// New creates a machine for entity starting at initial.
func New[T any](entity *T, initial StateFn[T]) *Machine[T] {
	return &Machine[T]{entity: entity, state: initial}
}

// Step runs the given state function (or the current one when fn is nil) and
// records the state it returns.
func (m *Machine[T]) Step(fn StateFn[T]) {
	m.mu.Lock()
	if fn == nil {
		fn = m.state
	}
	m.state = fn
	m.mu.Unlock()

	if fn == nil {
		return
	}
	next := fn(m.entity)

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()
}

// Set replaces the current state without executing anything.
func (m *Machine[T]) Set(fn StateFn[T]) {
	m.mu.Lock()
	m.state = fn
	m.mu.Unlock()
}

// Current returns the current state function. A nil result means the machine
// has terminated.
func (m *Machine[T]) Current() StateFn[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Terminated reports whether the machine reached the nil state.
func (m *Machine[T]) Terminated() bool {
	return m.Current() == nil
}

// In reports whether the machine currently sits in fn. Go functions are not
// comparable, so identity goes through the function's code pointer.
func (m *Machine[T]) In(fn StateFn[T]) bool {
	return Is(m.Current(), fn)
}

// Is compares two state functions by code pointer.
func Is[T any](a, b StateFn[T]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
