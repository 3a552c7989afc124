// Package plane implements the plane block of spec.md §4.4: the per-
// aircraft simulation unit combining four actuators, a leading-edge-flap
// feedback loop, a 12-state vector integrator and the mechanical model.
//
// Grounded on
// _examples/original_source/crates/libs/lib_core/src/parts/block.rs
// (ControllerBlock, LeadingEdgeFlapBlock, PlaneBlock) verbatim for
// structure, gains and the LEF feedback-law coefficients.
package plane

import (
	gomath "math"

	"github.com/WindLX/fly-ruler/math"
	"github.com/WindLX/fly-ruler/mech"
	"github.com/WindLX/fly-ruler/plugin"
	"github.com/WindLX/fly-ruler/trim"
)

// disturbance is the piecewise-constant additive perturbation of spec.md
// §4.4: +d for t∈[1,3], -d for t∈[3,5], 0 otherwise.
func disturbance(d, t float64) float64 {
	switch {
	case t >= 1 && t <= 3:
		return d
	case t >= 3 && t <= 5:
		return -d
	default:
		return 0
	}
}

// ControllerBlock owns the four control-surface actuators (thrust,
// elevator, aileron, rudder). Grounded on block.rs's ControllerBlock:
// thrust's gain is 1.0; elevator/aileron/rudder share gain 20.2
// (SPEC_FULL.md §12's restored per-channel gain detail).
type ControllerBlock struct {
	actuators  [4]*math.Actuator
	deflection [3]float64 // scripted elevator/aileron/rudder deflection schedule
}

// NewControllerBlock builds actuators from the plugin's control limits,
// seeded at controlInit.
func NewControllerBlock(controlInit math.Vector, deflection [3]float64, cl plugin.ControlLimit) *ControllerBlock {
	return &ControllerBlock{
		actuators: [4]*math.Actuator{
			math.NewActuator(controlInit[0], cl.ThrustCmdLimitTop, cl.ThrustCmdLimitBottom, cl.ThrustRateLimit, 1.0),
			math.NewActuator(controlInit[1], cl.EleCmdLimitTop, cl.EleCmdLimitBottom, cl.EleRateLimit, 20.2),
			math.NewActuator(controlInit[2], cl.AilCmdLimitTop, cl.AilCmdLimitBottom, cl.AilRateLimit, 20.2),
			math.NewActuator(controlInit[3], cl.RudCmdLimitTop, cl.RudCmdLimitBottom, cl.RudRateLimit, 20.2),
		},
		deflection: deflection,
	}
}

// Update advances every actuator with the incoming command at time t. The
// thrust channel passes through actuator 0 unfiltered; elevator/aileron/
// rudder receive the scripted disturbance only on channels whose scripted
// deflection magnitude is below 1e-10 (block.rs's mutual-exclusion gate
// between a nonzero scripted deflection and the disturbance injection).
func (c *ControllerBlock) Update(control math.Vector, t float64) math.Vector {
	out := control.Clone()
	out[0] = c.actuators[0].Update(out[0], t)
	for i := 0; i < 3; i++ {
		if gomath.Abs(c.deflection[i]) < 1e-10 {
			out[i+1] += disturbance(c.deflection[i], t)
		}
		out[i+1] = c.actuators[i+1].Update(out[i+1], t)
	}
	return out
}

// Past returns the actuators' current filtered output without advancing.
func (c *ControllerBlock) Past() math.Vector {
	return math.Vector{c.actuators[0].Past(), c.actuators[1].Past(), c.actuators[2].Past(), c.actuators[3].Past()}
}

// Reset restores every actuator to its initial state.
func (c *ControllerBlock) Reset() {
	for _, a := range c.actuators {
		a.Reset()
	}
}

// LeadingEdgeFlapBlock computes the internal LEF feedback law of spec.md
// §4.4: r1=qbar/ps*9.05, r2=(alpha_deg-feedback)*7.25, r3=integrate(r2,t),
// r4=r3+2*alpha_deg, feedback=r4, command=1.45+1.38*r4-r1, fed to its own
// actuator with limits [0,25] and gain 1/0.136. These coefficients must
// match exactly for numerical compatibility with existing aerodynamic
// models (spec.md §4.4, §9 "Atmosphere" design note).
type LeadingEdgeFlapBlock struct {
	actuator   *math.Actuator
	integrator *math.Integrator
	feedback   float64
}

// NewLeadingEdgeFlapBlock seeds the LEF integrator at -alpha_init(deg),
// matching block.rs's LeadingEdgeFlapBlock::new.
func NewLeadingEdgeFlapBlock(alphaInitRad, dLefInit float64) *LeadingEdgeFlapBlock {
	return &LeadingEdgeFlapBlock{
		actuator:   math.NewActuator(dLefInit, 25, 0, 25, 1.0/0.136),
		integrator: math.NewIntegrator(-alphaInitRad * 180 / gomath.Pi),
	}
}

// Update advances the LEF block given the current alpha (rad), altitude
// and velocity at simulated time t, returning the new LEF deflection
// (degrees).
func (l *LeadingEdgeFlapBlock) Update(alphaRad, alt, vt, t float64) float64 {
	atmos := math.AtmosAt(alt, vt)
	r1 := atmos.Qbar / atmos.Ps * 9.05
	alphaDeg := alphaRad * 180 / gomath.Pi
	r2 := (alphaDeg - l.feedback) * 7.25
	r3 := l.integrator.Integrate(r2, t)
	r4 := r3 + 2*alphaDeg
	l.feedback = r4
	r5 := r4 * 1.38
	return l.actuator.Update(1.45+r5-r1, t)
}

// Past returns the LEF actuator's current output without advancing.
func (l *LeadingEdgeFlapBlock) Past() float64 { return l.actuator.Past() }

// Reset restores the LEF block to its initial state.
func (l *LeadingEdgeFlapBlock) Reset() {
	l.actuator.Reset()
	l.integrator.Reset()
	l.feedback = 0
}

// Block is the per-plane simulation unit: actuators + LEF feedback +
// 12-state integrator + mechanical model + cached α/β envelope. Ownership
// is exclusive and lives inside a single task (spec.md §3 "Plane block").
type Block struct {
	control    *ControllerBlock
	flap       *LeadingEdgeFlapBlock
	integrator *math.VectorIntegrator
	mechModel  *mech.Model
	id         string
	alphaLo, alphaHi float64 // radians
	betaLo, betaHi   float64 // radians
}

// New builds a plane block from a trim solution and the plugin's control
// limits, matching block.rs's PlaneBlock::new.
func New(id string, mechModel *mech.Model, t trim.Output, deflection [3]float64, cl plugin.ControlLimit) *Block {
	control := math.Vector{t.Control[0], t.Control[1], t.Control[2], t.Control[3]}
	return &Block{
		control:    NewControllerBlock(control, deflection, cl),
		flap:       NewLeadingEdgeFlapBlock(t.Alpha, t.Lef),
		integrator: math.NewVectorIntegrator(t.State),
		mechModel:  mechModel,
		id:         id,
		alphaLo:    cl.AlphaLimitBottom * gomath.Pi / 180,
		alphaHi:    cl.AlphaLimitTop * gomath.Pi / 180,
		betaLo:     cl.BetaLimitBottom * gomath.Pi / 180,
		betaHi:     cl.BetaLimitTop * gomath.Pi / 180,
	}
}

// Output is one plane block update's published result: the new state,
// filtered control, LEF deflection and state-extend.
type Output struct {
	State   math.Vector
	Control math.Vector
	Lef     float64
	Extend  mech.Extend
}

// Update performs one plane-block step (spec.md §4.4):
//  1. read past state, clamp α/β to the envelope,
//  2. advance the actuators,
//  3. read past LEF,
//  4. call the mechanical model,
//  5. advance the vector integrator,
//  6. advance the LEF block,
//  7. return the published output.
func (b *Block) Update(control math.Vector, t float64) (Output, error) {
	state := b.integrator.Past()
	state[7] = math.Clamp(state[7], b.alphaLo, b.alphaHi)
	state[8] = math.Clamp(state[8], b.betaLo, b.betaHi)
	b.integrator.Set(7, state[7])
	b.integrator.Set(8, state[8])

	filtered := b.control.Update(control, t)
	lef := b.flap.Past()

	out, err := b.mechModel.Step(b.id, state, filtered, lef, t)
	if err != nil {
		return Output{}, err
	}

	newState := b.integrator.DerivativeAdd(out.StateDot, t)

	alpha, alt, vt := newState[7], newState[2], newState[6]
	newLef := b.flap.Update(alpha, alt, vt, t)

	return Output{
		State:   newState,
		Control: b.control.Past(),
		Lef:     newLef,
		Extend:  out.Extend,
	}, nil
}
