package math

// Integrator accumulates a scalar signal over simulated time. Integrate uses
// the trapezoidal rule; DerivativeAdd uses the rectangular rule. Grounded on
// spec.md §4.1 and original_source/crates/libs/lib_utils/src/parts/basic.rs.
type Integrator struct {
	init     float64
	lastTime float64
	lastVal  float64
	acc      float64
}

// NewIntegrator returns an integrator whose accumulated value starts at init.
func NewIntegrator(init float64) *Integrator {
	return &Integrator{init: init, lastVal: init, acc: init}
}

// Integrate updates the accumulator with the trapezoidal rule:
// acc += (t - t_last)*(v + v_last)/2, and returns the new accumulated value.
func (ig *Integrator) Integrate(v, t float64) float64 {
	dt := t - ig.lastTime
	ig.acc += dt * (v + ig.lastVal) / 2
	ig.lastTime = t
	ig.lastVal = v
	return ig.acc
}

// DerivativeAdd updates the accumulator with the rectangular rule:
// acc += d*(t - t_last), and returns the new accumulated value.
func (ig *Integrator) DerivativeAdd(d, t float64) float64 {
	dt := t - ig.lastTime
	ig.acc += d * dt
	ig.lastTime = t
	return ig.acc
}

// Past returns the last accumulated value without advancing.
func (ig *Integrator) Past() float64 { return ig.acc }

// Reset restores the initial state.
func (ig *Integrator) Reset() {
	ig.acc = ig.init
	ig.lastVal = ig.init
	ig.lastTime = 0
}

// VectorIntegrator mirrors Integrator element-wise over a Vector.
type VectorIntegrator struct {
	elems []*Integrator
}

// NewVectorIntegrator returns a vector integrator seeded at init.
func NewVectorIntegrator(init Vector) *VectorIntegrator {
	elems := make([]*Integrator, len(init))
	for i, v := range init {
		elems[i] = NewIntegrator(v)
	}
	return &VectorIntegrator{elems: elems}
}

// Past returns the current accumulated vector.
func (vi *VectorIntegrator) Past() Vector {
	out := make(Vector, len(vi.elems))
	for i, e := range vi.elems {
		out[i] = e.Past()
	}
	return out
}

// DerivativeAdd advances every element by the rectangular rule and returns
// the new state vector.
func (vi *VectorIntegrator) DerivativeAdd(d Vector, t float64) Vector {
	out := make(Vector, len(vi.elems))
	for i, e := range vi.elems {
		out[i] = e.DerivativeAdd(d[i], t)
	}
	return out
}

// Integrate advances every element by the trapezoidal rule.
func (vi *VectorIntegrator) Integrate(v Vector, t float64) Vector {
	out := make(Vector, len(vi.elems))
	for i, e := range vi.elems {
		out[i] = e.Integrate(v[i], t)
	}
	return out
}

// Reset restores every element to its initial state.
func (vi *VectorIntegrator) Reset() {
	for _, e := range vi.elems {
		e.Reset()
	}
}

// Set overwrites the current accumulated value at index i without touching
// the bookkeeping of last time/value; used to apply the α/β envelope clamp
// (spec.md §4.4 step 1) before feeding the state to the mechanical model.
func (vi *VectorIntegrator) Set(i int, v float64) {
	vi.elems[i].acc = v
}

// Differentiator computes first differences of a scalar signal sampled over
// time: (v - v_last)/(t - t_last).
type Differentiator struct {
	lastTime float64
	lastVal  float64
	started  bool
}

// NewDifferentiator returns a zeroed differentiator.
func NewDifferentiator() *Differentiator { return &Differentiator{} }

// Differentiate returns the first difference of v at time t.
func (d *Differentiator) Differentiate(v, t float64) float64 {
	if !d.started {
		d.started = true
		d.lastTime = t
		d.lastVal = v
		return 0
	}
	dt := t - d.lastTime
	var out float64
	if dt != 0 {
		out = (v - d.lastVal) / dt
	}
	d.lastTime = t
	d.lastVal = v
	return out
}
