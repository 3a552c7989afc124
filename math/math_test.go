package math

import (
	gomath "math"
	"testing"
)

func TestVectorArith(t *testing.T) {
	v := Vector{1, 2, 3}
	w := Vector{4, 5, 6}

	if got := v.Add(w); got[0] != 5 || got[1] != 7 || got[2] != 9 {
		t.Fatalf("Add: got %v", got)
	}
	if got := v.Scale(2); got[0] != 2 || got[1] != 4 || got[2] != 6 {
		t.Fatalf("Scale: got %v", got)
	}
	if got := v.Dot(w); got != 32 {
		t.Fatalf("Dot: got %v, want 32", got)
	}
	clone := v.Clone()
	clone[0] = 100
	if v[0] != 1 {
		t.Fatalf("Clone: mutated original, got %v", v)
	}
}

func TestWeightedSquareSum(t *testing.T) {
	w := Vector{1, 2}
	v := Vector{3, 4}
	if got := WeightedSquareSum(w, v); got != 1*9+2*16 {
		t.Fatalf("got %v", got)
	}
}

func TestAllFinite(t *testing.T) {
	if !AllFinite(Vector{1, 2, 3}) {
		t.Fatal("expected finite")
	}
	if AllFinite(Vector{1, gomath.Inf(1), 3}) {
		t.Fatal("expected non-finite")
	}
	nan := 0.0
	nan = nan / nan
	if AllFinite(Vector{nan}) {
		t.Fatal("expected NaN to be non-finite")
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ x, lo, hi, want float64 }{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
	}
	for _, c := range cases {
		if got := Clamp(c.x, c.lo, c.hi); got != c.want {
			t.Fatalf("Clamp(%v,%v,%v) = %v, want %v", c.x, c.lo, c.hi, got, c.want)
		}
	}
}

func TestIntegratorTrapezoidal(t *testing.T) {
	ig := NewIntegrator(0)
	ig.Integrate(2, 0) // first sample at t=0 adds no area yet
	got := ig.Integrate(4, 1)
	want := 1.0 * (2 + 4) / 2
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestIntegratorReset(t *testing.T) {
	ig := NewIntegrator(5)
	ig.Integrate(1, 0)
	ig.Integrate(2, 1)
	ig.Reset()
	if got := ig.Past(); got != 5 {
		t.Fatalf("after reset got %v, want 5", got)
	}
}

func TestActuatorTracksWithinRate(t *testing.T) {
	a := NewActuator(0, 100, -100, 10, 1)
	out := a.Update(5, 1)
	if out <= 0 || out > 5 {
		t.Fatalf("expected partial tracking toward 5, got %v", out)
	}
}

func TestActuatorClampsCommand(t *testing.T) {
	a := NewActuator(0, 10, -10, 1000, 1)
	out := a.Update(50, 1)
	if out > 10 {
		t.Fatalf("expected command clamp to 10, got %v", out)
	}
}

func TestAtmosAtSeaLevel(t *testing.T) {
	a := AtmosAt(0, 500)
	if a.Mach <= 0 || a.Qbar <= 0 || a.Ps <= 0 {
		t.Fatalf("expected positive atmosphere values, got %+v", a)
	}
}

func TestAtmosAtHighAltitudeUsesIsothermalLayer(t *testing.T) {
	a := AtmosAt(40000, 800)
	want := 800 / gomath.Sqrt(1.4*1716.3*390)
	if gomath.Abs(a.Mach-want) > 1e-12 {
		t.Fatalf("expected mach %v from the isothermal temperature 390, got %+v", want, a)
	}
}
