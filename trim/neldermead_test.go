package trim

import (
	gomath "math"
	"testing"

	"github.com/WindLX/fly-ruler/math"
)

func TestMinimizeFindsQuadraticMinimum(t *testing.T) {
	// f(x) = (x0-3)^2 + (x1+2)^2, minimum at (3, -2).
	f := func(x math.Vector) float64 {
		return (x[0]-3)*(x[0]-3) + (x[1]+2)*(x[1]+2)
	}
	opt := Options{MaxFunEvals: 5000, MaxIter: 2000, TolFun: 1e-10, TolX: 1e-10}
	result := Minimize(f, math.Vector{0, 0}, opt)

	if !result.Converged {
		t.Fatalf("expected convergence, report: %+v", result)
	}
	if gomath.Abs(result.X[0]-3) > 1e-3 || gomath.Abs(result.X[1]+2) > 1e-3 {
		t.Fatalf("got minimum at %v, want close to (3, -2)", result.X)
	}
	if result.Fval > 1e-6 {
		t.Fatalf("expected near-zero residual, got %v", result.Fval)
	}
}

func TestMinimizeRespectsMaxIterBound(t *testing.T) {
	f := func(x math.Vector) float64 { return (x[0]-1000)*(x[0]-1000) }
	opt := Options{MaxFunEvals: 1000000, MaxIter: 1, TolFun: 0, TolX: 0}
	result := Minimize(f, math.Vector{0}, opt)
	if result.Converged {
		t.Fatal("expected non-convergence with a 1-iteration budget")
	}
	if result.Iterations > 1 {
		t.Fatalf("expected at most 1 iteration, got %d", result.Iterations)
	}
}

func TestDefaultOptionsMatchOriginalTestDefaults(t *testing.T) {
	opt := DefaultOptions()
	if opt.MaxFunEvals != 50000 || opt.MaxIter != 10000 {
		t.Fatalf("got %+v", opt)
	}
	if opt.TolFun != 1e-6 || opt.TolX != 1e-6 {
		t.Fatalf("got %+v", opt)
	}
}
