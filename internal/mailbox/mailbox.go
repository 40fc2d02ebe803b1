// Package mailbox provides a single-slot buffer where the latest item wins.
package mailbox

import (
	"context"
	"sync"
)

// Mailbox holds at most one pending item. It is NOT a queue: Put overwrites
// an item nobody took yet, so bursts of triggers collapse into one.
type Mailbox[T any] struct {
	mu    sync.Mutex
	item  *T
	ready chan struct{}
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{ready: make(chan struct{}, 1)}
}

// Put stores an item, replacing any pending one. It never blocks and
// reports whether a pending item was replaced.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	replaced := m.item != nil
	m.item = &v
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return replaced
}

// Take blocks until an item is available or ctx is done.
func (m *Mailbox[T]) Take(ctx context.Context) (T, bool) {
	for {
		if v := m.TryTake(); v != nil {
			return *v, true
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-m.ready:
		}
	}
}

// TryTake returns the pending item, or nil. It never blocks.
func (m *Mailbox[T]) TryTake() *T {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.item
	m.item = nil
	return v
}

// Pending reports whether an item is waiting.
func (m *Mailbox[T]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.item != nil
}
