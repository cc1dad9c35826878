package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Registry holds one value per live session, keyed by session ID.
type Registry[T any] struct {
	mu    sync.Mutex
	clock clockwork.Clock
	newFn func() T
	items map[string]entry[T]
}

type entry[T any] struct {
	v    T
	seen time.Time
}

type RegistryOption func(*registryOptions)

type registryOptions struct {
	clock clockwork.Clock
}

func WithRegistryClock(c clockwork.Clock) RegistryOption {
	return func(o *registryOptions) { o.clock = c }
}

// NewRegistry builds values with newFn the first time a session asks for one.
func NewRegistry[T any](newFn func() T, opts ...RegistryOption) *Registry[T] {
	o := registryOptions{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry[T]{
		clock: o.clock,
		newFn: newFn,
		items: make(map[string]entry[T]),
	}
}

// For returns the session's value and marks the session as seen.
func (r *Registry[T]) For(sessionID string) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[sessionID]
	if !ok {
		e.v = r.newFn()
	}
	e.seen = r.clock.Now()
	r.items[sessionID] = e
	return e.v
}

// Drop tears down the session's value. The next For starts from scratch.
func (r *Registry[T]) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.items, sessionID)
	r.mu.Unlock()
}

// Prune drops every session not seen for longer than idle and reports how
// many went.
func (r *Registry[T]) Prune(idle time.Duration) int {
	cutoff := r.clock.Now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.items {
		if e.seen.Before(cutoff) {
			delete(r.items, id)
			n++
		}
	}
	return n
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Values returns a snapshot of every live value.
func (r *Registry[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.items))
	for _, e := range r.items {
		out = append(out, e.v)
	}
	return out
}
