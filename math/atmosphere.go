package math

import gomath "math"

// Atmos is the (mach, qbar, ps) byproduct of the standard-atmosphere
// approximation at a given altitude and velocity. Constants must match
// spec.md §4.1 verbatim for bit-compatibility with existing aerodynamic
// plugins; grounded on
// _examples/original_source/crates/libs/lib_utils/src/parts/basic.rs.
type Atmos struct {
	Mach float64
	Qbar float64
	Ps   float64
}

const rho0 = 2.377e-3

// AtmosAt computes (mach, qbar, ps) from altitude h (ft) and velocity vt
// (ft/s).
func AtmosAt(h, vt float64) Atmos {
	tfac := 1 - 0.703e-5*h
	t := 519 * tfac
	if h >= 35000 {
		t = 390
	}
	mach := vt / gomath.Sqrt(1.4*1716.3*t)
	rho := rho0 * gomath.Pow(tfac, 4.14)
	qbar := 0.5 * rho * vt * vt
	ps := 1715 * rho * t
	if ps < 1e-6 {
		ps = 1715
	}
	return Atmos{Mach: mach, Qbar: qbar, Ps: ps}
}
