// Package trim implements the Nelder-Mead (downhill simplex) solver of
// spec.md §4.5: finding (thrust, elevator, aileron, rudder, α) that
// minimises the weighted cost of the mechanical model's state derivative at
// a chosen (altitude, velocity).
package trim

import "github.com/WindLX/fly-ruler/math"

// Options bounds the optimiser: exceeding either bound returns a report
// with a termination flag rather than an error (spec.md §5 Timeouts).
// Reflection/expansion/contraction/shrink coefficients are the textbook
// defaults per spec.md §4.5's explicit instruction, since no Nelder-Mead
// source survived the original_source/ corpus filter to ground exact
// coefficients on.
type Options struct {
	MaxFunEvals int
	MaxIter     int
	TolFun      float64
	TolX        float64
}

// DefaultOptions mirrors the original's test defaults
// (original_source/fly_ruler_core/src/trim.rs core_trim_tests).
func DefaultOptions() Options {
	return Options{MaxFunEvals: 50000, MaxIter: 10000, TolFun: 1e-6, TolX: 1e-6}
}

const (
	alpha = 1.0 // reflection
	gamma = 2.0 // expansion
	rho   = 0.5 // contraction
	sigma = 0.5 // shrink
)

// Result is the optimiser report: the optimal free variables, the final
// cost, iteration/evaluation counts and whether a bound was hit before
// convergence.
type Result struct {
	X          math.Vector
	Fval       float64
	Iterations int
	FunEvals   int
	Converged  bool
}

// Minimize runs Nelder-Mead starting from x0, minimising f.
func Minimize(f func(math.Vector) float64, x0 math.Vector, opt Options) Result {
	n := len(x0)
	simplex := make([]math.Vector, n+1)
	fval := make([]float64, n+1)

	simplex[0] = x0.Clone()
	for i := 0; i < n; i++ {
		p := x0.Clone()
		step := 0.05
		if p[i] != 0 {
			step = 0.05 * p[i]
		}
		if step == 0 {
			step = 0.00025
		}
		p[i] += step
		simplex[i+1] = p
	}

	evals := 0
	for i := range simplex {
		fval[i] = f(simplex[i])
		evals++
	}

	iter := 0
	converged := false
	for iter < opt.MaxIter && evals < opt.MaxFunEvals {
		sortSimplex(simplex, fval)

		fRange := abs(fval[n] - fval[0])
		xRange := maxVertexSpread(simplex)
		if fRange <= opt.TolFun && xRange <= opt.TolX {
			converged = true
			break
		}

		centroid := centroidExcluding(simplex, n)

		worst := simplex[n]
		reflected := addScaled(centroid, sub(centroid, worst), alpha)
		fReflected := f(reflected)
		evals++

		switch {
		case fReflected < fval[0]:
			expanded := addScaled(centroid, sub(reflected, centroid), gamma)
			fExpanded := f(expanded)
			evals++
			if fExpanded < fReflected {
				simplex[n], fval[n] = expanded, fExpanded
			} else {
				simplex[n], fval[n] = reflected, fReflected
			}
		case fReflected < fval[n-1]:
			simplex[n], fval[n] = reflected, fReflected
		default:
			var contracted math.Vector
			var fContracted float64
			if fReflected < fval[n] {
				contracted = addScaled(centroid, sub(reflected, centroid), rho)
			} else {
				contracted = addScaled(centroid, sub(worst, centroid), rho)
			}
			fContracted = f(contracted)
			evals++
			if fContracted < fval[n] && fContracted < fReflected {
				simplex[n], fval[n] = contracted, fContracted
			} else {
				for i := 1; i <= n; i++ {
					simplex[i] = addScaled(simplex[0], sub(simplex[i], simplex[0]), sigma)
					fval[i] = f(simplex[i])
					evals++
				}
			}
		}
		iter++
	}

	sortSimplex(simplex, fval)
	return Result{X: simplex[0], Fval: fval[0], Iterations: iter, FunEvals: evals, Converged: converged}
}

func sortSimplex(simplex []math.Vector, fval []float64) {
	n := len(fval)
	for i := 1; i < n; i++ {
		j := i
		for j > 0 && fval[j-1] > fval[j] {
			fval[j-1], fval[j] = fval[j], fval[j-1]
			simplex[j-1], simplex[j] = simplex[j], simplex[j-1]
			j--
		}
	}
}

func centroidExcluding(simplex []math.Vector, excludeIdx int) math.Vector {
	n := len(simplex) - 1
	c := math.NewVector(len(simplex[0]))
	for i, v := range simplex {
		if i == excludeIdx {
			continue
		}
		c = c.Add(v)
	}
	return c.Scale(1.0 / float64(n))
}

func sub(a, b math.Vector) math.Vector { return a.Add(b.Scale(-1)) }

func addScaled(base, delta math.Vector, s float64) math.Vector {
	return base.Add(delta.Scale(s))
}

func maxVertexSpread(simplex []math.Vector) float64 {
	var maxSpread float64
	for i := 1; i < len(simplex); i++ {
		d := sub(simplex[i], simplex[0])
		for _, x := range d {
			if a := abs(x); a > maxSpread {
				maxSpread = a
			}
		}
	}
	return maxSpread
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
