// Package xchan implements the two channel types of spec.md §4.8: a
// single-writer, multi-reader latest-value output channel, and a
// multi-writer, single-reader bounded input channel with last-value
// caching.
//
// The output channel's "replace a closed notify channel" technique is a
// standard Go broadcast idiom; its multi-reader register/fan-out shape is
// grounded on
// _examples/PossumXI-Asgard_Arobi/internal/api/realtime/broadcaster.go
// (register/unregister/broadcast over a channel of subscribers), adapted
// here to a single-slot "latest value" payload instead of an unbounded
// broadcast queue, per spec.md §4.8's and §9's "do not replace with an
// unbounded queue" note.
package xchan

import (
	"sync"

	"github.com/brunoga/deep"
)

// Timed pairs a simulated time with a payload T, the wire shape spec.md
// §4.8 calls "(simulated-time, CoreOutput)".
type Timed[T any] struct {
	Time    float64
	Payload T
}

// Output is a single-writer, multi-reader latest-value channel.
type Output[T any] struct {
	mu       sync.Mutex
	value    Timed[T]
	version  uint64
	notify   chan struct{}
	closed   bool
}

// NewOutput returns an output channel initialised with value.
func NewOutput[T any](init Timed[T]) *Output[T] {
	return &Output[T]{value: init, notify: make(chan struct{})}
}

// Send publishes a new value; all existing receivers waiting on Changed
// wake up.
func (o *Output[T]) Send(v Timed[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.value = v
	o.version++
	close(o.notify)
	o.notify = make(chan struct{})
}

// Close marks the channel closed and wakes every receiver blocked in
// Changed, which then reports ok=false; no further Send calls take effect.
func (o *Output[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.notify)
}

// Receiver is an independent reading cursor over an Output channel.
// Cloning a receiver produces an independent cursor (spec.md §4.8).
type Receiver[T any] struct {
	out     *Output[T]
	lastSeen uint64
}

// Subscribe returns a fresh cursor positioned at the channel's current
// value (not yet "seen" — the first Changed call returns immediately if a
// Send has occurred since construction, otherwise blocks for the next one).
func (o *Output[T]) Subscribe() *Receiver[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return &Receiver[T]{out: o, lastSeen: 0}
}

// Clone produces an independent cursor sharing the same current position.
func (r *Receiver[T]) Clone() *Receiver[T] {
	return &Receiver[T]{out: r.out, lastSeen: r.lastSeen}
}

// Get clones the current value without marking it seen. The payload is
// deep-copied so a reader mutating its copy cannot corrupt the value other
// receivers (or the next Send) observe.
func (r *Receiver[T]) Get() Timed[T] {
	r.out.mu.Lock()
	v := r.out.value
	r.out.mu.Unlock()
	return deepCloneTimed(v)
}

// HasChanged is the non-blocking check for whether a new value has been
// published since this cursor last observed one.
func (r *Receiver[T]) HasChanged() bool {
	r.out.mu.Lock()
	defer r.out.mu.Unlock()
	return r.out.version > r.lastSeen
}

// GetAndUpdate clones the current value and marks it seen.
func (r *Receiver[T]) GetAndUpdate() Timed[T] {
	r.out.mu.Lock()
	v := r.out.value
	r.lastSeen = r.out.version
	r.out.mu.Unlock()
	return deepCloneTimed(v)
}

// Changed blocks until the next publication after this cursor's last seen
// version, then returns it and marks it seen. Returns ok=false if the
// channel closed while waiting.
func (r *Receiver[T]) Changed() (Timed[T], bool) {
	for {
		r.out.mu.Lock()
		if r.out.version > r.lastSeen {
			v := r.out.value
			r.lastSeen = r.out.version
			r.out.mu.Unlock()
			return deepCloneTimed(v), true
		}
		if r.out.closed {
			r.out.mu.Unlock()
			var zero Timed[T]
			return zero, false
		}
		wait := r.out.notify
		r.out.mu.Unlock()
		<-wait
	}
}

// deepCloneTimed deep-copies a Timed payload so handing it to a reader
// cannot let that reader mutate state shared with the writer or other
// receivers. Falls back to the shallow value on a copy error (e.g. T
// contains an unexported field deep cannot reach) rather than panicking a
// publish path.
func deepCloneTimed[T any](v Timed[T]) Timed[T] {
	cloned, err := deep.Copy(v.Payload)
	if err != nil {
		return v
	}
	return Timed[T]{Time: v.Time, Payload: cloned}
}
