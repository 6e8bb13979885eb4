// SPDX-License-Identifier: MIT

// Package event implements the observer registry used for region-changed and
// playback notifications. Delivery is synchronous on the publishing goroutine
// and walks subscribers in reverse registration order; both are part of the
// contract, handlers must not block.
package event

import "sync"

// Registry holds the subscribers for one event type.
type Registry[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (r *Registry[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs = append(r.subs, subscriber[T]{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *Registry[T]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s.id == id {
			// Copy so that a Publish iterating an earlier snapshot is unaffected.
			subs := make([]subscriber[T], 0, len(r.subs)-1)
			subs = append(subs, r.subs[:i]...)
			r.subs = append(subs, r.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every subscriber, most recently registered first.
// Subscribers may (un)subscribe from inside a handler; the change applies to
// the next Publish.
func (r *Registry[T]) Publish(ev T) {
	r.mu.Lock()
	subs := r.subs
	r.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].fn(ev)
	}
}

// Len returns the number of current subscribers.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
