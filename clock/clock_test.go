package clock

import (
	"testing"
	"time"
)

func TestRealtimeAdvances(t *testing.T) {
	c := NewRealtime(1.0)
	c.Start()
	time.Sleep(10 * time.Millisecond)
	if c.Now() <= 0 {
		t.Fatal("expected elapsed time to be positive")
	}
}

func TestRealtimePauseFreezesElapsed(t *testing.T) {
	c := NewRealtime(1.0)
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Pause()
	frozen := c.Now()
	time.Sleep(20 * time.Millisecond)
	if c.Now() != frozen {
		t.Fatalf("expected time frozen at %v while paused, got %v", frozen, c.Now())
	}
	c.Resume()
	time.Sleep(5 * time.Millisecond)
	if c.Now() <= frozen {
		t.Fatal("expected time to resume advancing")
	}
}

func TestRealtimeDefaultScale(t *testing.T) {
	c := NewRealtime(0)
	if c.scale != 1.0 {
		t.Fatalf("expected default scale 1.0, got %v", c.scale)
	}
}

func TestFixedStepAdvancesByDelta(t *testing.T) {
	c := NewFixedStep(time.Millisecond, 1.0)
	c.Start()
	first := c.Now()
	second := c.Now()
	if second-first != time.Millisecond {
		t.Fatalf("expected consecutive values to differ by delta %v, got %v then %v", time.Millisecond, first, second)
	}
}

func TestFixedStepPauseFreezes(t *testing.T) {
	c := NewFixedStep(time.Millisecond, 1.0)
	c.Start()
	c.Now()
	c.Pause()
	a := c.Now()
	b := c.Now()
	if a != b {
		t.Fatalf("expected frozen value while paused, got %v then %v", a, b)
	}
}
