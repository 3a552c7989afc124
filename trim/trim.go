package trim

import (
	gomath "math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/WindLX/fly-ruler/ferr"
	flymath "github.com/WindLX/fly-ruler/math"
	"github.com/WindLX/fly-ruler/mech"
)

var errTrimNaN = ferr.ErrTrimNaN

// Condition selects the trim flight condition (spec.md §4.5), adjusting
// weights and assumed ψ/q. Grounded on
// _examples/original_source/fly_ruler_core/src/parts/trim.rs's
// FlightCondition.
type Condition int

const (
	WingsLevel Condition = iota
	Turning
	PullUp
	Roll
)

// Target is the (altitude, velocity) pair trim solves for.
type Target struct {
	Altitude float64
	Velocity float64
}

// DefaultInitialGuess is the default initial guess for the free variables
// [thrust, elevator, aileron, rudder, alpha(rad)] (spec.md §4.5).
func DefaultInitialGuess() flymath.Vector {
	return flymath.Vector{5000, -0.09, 0.01, -0.01, 8.49 * gomath.Pi / 180}
}

// Output is the trim solution: the optimal free variables, the full state
// at the solution, state-extend, LEF and the optimiser report.
type Output struct {
	Control flymath.Vector // thrust, elevator, aileron, rudder
	Alpha   float64
	State   flymath.Vector
	Extend  mech.Extend
	Lef     float64
	Report  Result
}

// Free-variable limits, grounded on
// _examples/original_source/fly_ruler_core/src/parts/trim.rs.
const (
	thrustLo, thrustHi = 1000.0, 19000.0
	eleLo, eleHi       = -25.0, 25.0
	ailLo, ailHi       = -21.5, 21.5
	rudLo, rudHi       = -30.0, 30.0
	alphaLoDeg, alphaHiDeg = -20.0, 45.0
)

// cacheKey identifies a trim query for the result cache.
type cacheKey struct {
	model     string
	altitude  float64
	velocity  float64
	condition Condition
}

// Cache memoises trim solutions, avoiding re-running Nelder-Mead for
// repeated PushPlane requests with identical (model, altitude, velocity,
// condition) — grounded on mmp-vice's direct dependency on
// github.com/hashicorp/golang-lru/v2, per SPEC_FULL.md §11.
type Cache struct {
	lru *lru.Cache[cacheKey, Output]
}

// NewCache returns a trim-result cache holding up to size entries.
func NewCache(size int) *Cache {
	c, _ := lru.New[cacheKey, Output](size)
	return &Cache{lru: c}
}

// Solve runs (or returns a cached) Nelder-Mead trim for target under
// condition, invoking plant for each cost evaluation. modelName keys the
// cache alongside the query parameters.
func Solve(modelName string, plant *mech.Model, target Target, condition Condition, opt Options, cache *Cache) (Output, error) {
	key := cacheKey{model: modelName, altitude: target.Altitude, velocity: target.Velocity, condition: condition}
	if cache != nil {
		if v, ok := cache.lru.Get(key); ok {
			return v, nil
		}
	}

	psiDeg, qDeg := 0.0, 0.0
	phiWeight, thetaWeight, psiWeight := 10.0, 10.0, 10.0
	switch condition {
	case Turning:
		psiDeg = 1.0
		psiWeight = 1.0
	case PullUp:
		qDeg = 1.0
		thetaWeight = 1.0
	}

	weight := flymath.Vector{0, 0, 5, phiWeight, thetaWeight, psiWeight, 2, 10, 10, 10, 10, 10}

	var lastState flymath.Vector
	var lastExtend mech.Extend
	var lastLef float64
	var callErr error

	f := func(x flymath.Vector) float64 {
		thrust := flymath.Clamp(x[0], thrustLo, thrustHi)
		elevator := flymath.Clamp(x[1], eleLo, eleHi)
		aileron := flymath.Clamp(x[2], ailLo, ailHi)
		rudder := flymath.Clamp(x[3], rudLo, rudHi)
		alpha := flymath.Clamp(x[4], alphaLoDeg*gomath.Pi/180, alphaHiDeg*gomath.Pi/180)

		atmos := flymath.AtmosAt(target.Altitude, target.Velocity)
		lef := flymath.Clamp(1.38*alpha*180/gomath.Pi-9.05*atmos.Qbar/atmos.Ps+1.45, 0, 25)

		state := flymath.Vector{
			0, 0, target.Altitude,
			0, alpha, psiDeg * gomath.Pi / 180,
			target.Velocity, alpha, 0,
			0, qDeg * gomath.Pi / 180, 0,
		}
		control := flymath.Vector{thrust, elevator, aileron, rudder}

		out, err := plant.Trim(state, control)
		if err != nil {
			callErr = err
			return gomath.Inf(1)
		}

		lastState, lastExtend, lastLef = state, out.Extend, lef
		return flymath.WeightedSquareSum(weight, out.StateDot)
	}

	x0 := DefaultInitialGuess()
	// trim.go's free-variable order is [thrust, elevator, aileron, rudder,
	// alpha], matching spec.md §4.5 exactly (the original's parts/trim.rs
	// orders [thrust, elevator, aileron, rudder] + alpha identically).
	report := Minimize(f, x0, opt)
	// Evaluate once more at the optimum so lastState/lastExtend/lastLef
	// describe the solution rather than the last vertex the simplex tried.
	f(report.X)
	if callErr != nil {
		return Output{}, callErr
	}
	if !flymath.AllFinite(report.X) || report.Fval != report.Fval {
		return Output{}, errTrimNaN
	}

	out := Output{
		Control: flymath.Vector{
			flymath.Clamp(report.X[0], thrustLo, thrustHi),
			flymath.Clamp(report.X[1], eleLo, eleHi),
			flymath.Clamp(report.X[2], ailLo, ailHi),
			flymath.Clamp(report.X[3], rudLo, rudHi),
		},
		Alpha:  flymath.Clamp(report.X[4], alphaLoDeg*gomath.Pi/180, alphaHiDeg*gomath.Pi/180),
		State:  lastState,
		Extend: lastExtend,
		Lef:    lastLef,
		Report: report,
	}

	if cache != nil {
		cache.lru.Add(key, out)
	}
	return out, nil
}
