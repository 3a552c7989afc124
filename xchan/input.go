package xchan

import (
	"context"
	"sync"
)

// Input is a multi-writer, single-reader bounded FIFO of values, with the
// receiver caching the last delivered value so a lost producer does not
// desynchronise actuator state (spec.md §4.8). Grounded in shape on
// mmp-vice's util/chan.go ChunkedChan (a generic channel wrapper adding
// policy atop a plain Go channel), adapted from batch-send to
// last-value-cache-on-receive semantics per spec.md §4.8.
type Input[T any] struct {
	ch chan T

	mu   sync.Mutex
	last T
	has  bool
}

// NewInput returns a bounded input channel of the given capacity.
func NewInput[T any](capacity int) *Input[T] {
	return &Input[T]{ch: make(chan T, capacity)}
}

// Sender is the multi-writer handle; Send may be called concurrently from
// any number of goroutines.
type Sender[T any] struct {
	ch chan<- T
}

// Sender returns a cloneable sender handle for this input channel.
func (i *Input[T]) Sender() Sender[T] { return Sender[T]{ch: i.ch} }

// Send enqueues a value, blocking if the channel is full.
func (s Sender[T]) Send(ctx context.Context, v T) error {
	select {
	case s.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues a value without blocking, returning false if the
// channel is full.
func (s Sender[T]) TrySend(v T) bool {
	select {
	case s.ch <- v:
		return true
	default:
		return false
	}
}

// Close closes the underlying channel; further sends panic, matching
// ordinary Go channel semantics and signalling ControllerDropped to the
// single reader.
func (s Sender[T]) Close() { close(s.ch) }

// Recv awaits the next value and caches it as the last delivered value. If
// ctx is cancelled first, it returns the cached last value with ok=true. ok
// is false if the channel closed (ControllerDropped, spec.md §7), in which
// case the cached last value is returned.
func (i *Input[T]) Recv(ctx context.Context) (v T, ok bool) {
	select {
	case x, open := <-i.ch:
		if !open {
			return i.Last(), false
		}
		i.mu.Lock()
		i.last = x
		i.has = true
		i.mu.Unlock()
		return x, true
	case <-ctx.Done():
		return i.Last(), true
	}
}

// Last returns the most recently delivered value (the zero value if none
// has ever been delivered).
func (i *Input[T]) Last() T {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.last
}

// HasLast reports whether any value has ever been delivered.
func (i *Input[T]) HasLast() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.has
}
