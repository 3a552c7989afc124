// Package clock implements the virtual-time source of spec.md §4.6: two
// modes (realtime, fixed-step) behind a single interface, with pause/
// resume semantics.
//
// Grounded on
// _examples/original_source/crates/libs/lib_core/src/clock.rs for the
// pause/resume origin-shifting technique (shift actual_start_time by the
// paused duration on resume so paused wall time never accumulates), scoped
// down to single-listener semantics since every clock instance in this
// design belongs to exactly one plane task (SPEC_FULL.md §12 records why
// the original's multi-listener batching is not carried over).
package clock

import (
	"sync"
	"time"
)

// Clock is the shared interface both modes implement: start, now, pause,
// resume.
type Clock interface {
	Start()
	Now() time.Duration
	Pause()
	Resume()
}

// Realtime returns wall-clock elapsed since Start, scaled by a constant
// factor. Pause/resume shift the origin so paused wall time does not
// accumulate.
type Realtime struct {
	mu        sync.Mutex
	scale     float64
	startTime time.Time
	pauseTime time.Time
	paused    bool
}

// NewRealtime returns a realtime clock with the given scale factor (1.0 for
// true wall-clock pacing).
func NewRealtime(scale float64) *Realtime {
	if scale == 0 {
		scale = 1.0
	}
	return &Realtime{scale: scale}
}

func (c *Realtime) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.pauseTime = c.startTime
	c.paused = false
}

func (c *Realtime) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return scaleDuration(c.pauseTime.Sub(c.startTime), c.scale)
	}
	return scaleDuration(time.Since(c.startTime), c.scale)
}

func (c *Realtime) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		c.pauseTime = time.Now()
		c.paused = true
	}
}

func (c *Realtime) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		pausedFor := time.Since(c.pauseTime)
		c.startTime = c.startTime.Add(pausedFor)
		c.paused = false
	}
}

func scaleDuration(d time.Duration, scale float64) time.Duration {
	return time.Duration(float64(d) * scale)
}

// FixedStep returns N*delta*scale where N is the number of times Now has
// been called since Start, sleeping as needed so calls are at least delta
// apart in wall time.
type FixedStep struct {
	mu       sync.Mutex
	delta    time.Duration
	scale    float64
	n        int64
	lastCall time.Time
	frozen   time.Duration
	paused   bool
}

// NewFixedStep returns a fixed-step clock with sample period delta and
// scale s (1.0 if unspecified by the caller as 0).
func NewFixedStep(delta time.Duration, scale float64) *FixedStep {
	if scale == 0 {
		scale = 1.0
	}
	return &FixedStep{delta: delta, scale: scale}
}

func (c *FixedStep) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
	c.lastCall = time.Now()
	c.paused = false
}

func (c *FixedStep) Now() time.Duration {
	c.mu.Lock()
	if c.paused {
		v := c.frozen
		c.mu.Unlock()
		return v
	}
	since := time.Since(c.lastCall)
	if since < c.delta {
		sleep := c.delta - since
		c.mu.Unlock()
		time.Sleep(sleep)
		c.mu.Lock()
	}
	c.n++
	c.lastCall = time.Now()
	v := scaleDuration(time.Duration(c.n)*c.delta, c.scale)
	c.frozen = v
	c.mu.Unlock()
	return v
}

func (c *FixedStep) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

func (c *FixedStep) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
	c.lastCall = time.Now()
}
