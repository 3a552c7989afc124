package math

// Actuator models first-order lag dynamics with command saturation and rate
// limiting (spec.md §4.1, the GLOSSARY's "Actuator"). Grounded on
// _examples/original_source/crates/libs/lib_utils/src/parts/basic.rs and
// parts/group.rs (Actuator::new/update/past/reset).
type Actuator struct {
	integrator *Integrator
	lo, hi     float64
	rate       float64
	gain       float64
}

// NewActuator constructs an actuator with initial state value init, command
// limits [lo, hi], rate limit rate and proportional gain.
func NewActuator(init, hi, lo, rate, gain float64) *Actuator {
	return &Actuator{
		integrator: NewIntegrator(init),
		lo:         lo,
		hi:         hi,
		rate:       rate,
		gain:       gain,
	}
}

// Update advances the actuator toward command u at simulated time t and
// returns the new filtered output: u' = clamp(u, lo, hi); e = u' - x;
// ẋ = gain*clamp(e, -rate, rate).
func (a *Actuator) Update(u, t float64) float64 {
	uClamped := Clamp(u, a.lo, a.hi)
	e := uClamped - a.integrator.Past()
	edot := a.gain * Clamp(e, -a.rate, a.rate)
	return a.integrator.DerivativeAdd(edot, t)
}

// Past returns the actuator's current output without advancing it.
func (a *Actuator) Past() float64 { return a.integrator.Past() }

// Reset restores the actuator to its initial state.
func (a *Actuator) Reset() { a.integrator.Reset() }
