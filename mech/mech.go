// Package mech implements the mechanical model: the pure function from
// (state, control, LEF deflection) to (state-derivative, state-extend)
// specified in spec.md §4.3, composing the plugin's aerodynamic
// coefficients with 6-DOF rigid-body kinematics/dynamics.
//
// Grounded verbatim on _examples/original_source/fly_ruler_core/src/parts/flight/{plant.rs,basic.rs}:
// the step sequence, trig decomposition, navigation/kinematics equations,
// velocity/angle-rate derivations and body accelerations are a direct port.
package mech

import (
	"fmt"
	gomath "math"

	"github.com/WindLX/fly-ruler/math"
	"github.com/WindLX/fly-ruler/model"
	"github.com/WindLX/fly-ruler/plugin"
)

// Gravity, ft/s^2.
const G = 32.17

// Model composes a loaded AerodynamicModel with its plane constants to
// evaluate the 6-DOF equations of motion.
type Model struct {
	aero      *model.AerodynamicModel
	constants plugin.PlaneConstants
}

// New loads the plugin's plane constants and returns a ready mechanical
// model.
func New(aero *model.AerodynamicModel) (*Model, error) {
	c, err := aero.LoadConstants()
	if err != nil {
		return nil, err
	}
	return &Model{aero: aero, constants: c}, nil
}

// Output is the (state-derivative, state-extend) pair a single mechanical
// model evaluation produces.
type Output struct {
	StateDot math.Vector // 12 elements, spec.md §3 State order
	Extend   Extend
}

// Extend is the mechanical model's auxiliary, non-integrated output
// (spec.md §3 state-extend): body accelerations and atmosphere.
type Extend struct {
	Nx, Ny, Nz     float64
	Mach, Qbar, Ps float64
}

func (e Extend) Vector() math.Vector {
	return math.Vector{e.Nx, e.Ny, e.Nz, e.Mach, e.Qbar, e.Ps}
}

type trig struct{ s, c, t float64 }

func trigOf(x float64) trig { return trig{s: gomath.Sin(x), c: gomath.Cos(x)} }
func trigOfWithTan(x float64) trig {
	return trig{s: gomath.Sin(x), c: gomath.Cos(x), t: gomath.Tan(x)}
}

// Step evaluates the mechanical model at the given state/control/LEF,
// calling the plugin's step path. Use Trim instead during trim solving.
//
// lef is accepted because spec.md §4.3/§4.4 define the mechanical model as
// a function of (state, control, lef); the plugin ABI of spec.md §6,
// however, has no lef slot in its step(id,state,control,t)→C signature, so
// it is not forwarded to the plugin call below. The plane block (package
// plane) is the caller that actually threads the LEF actuator's state
// through the rest of the per-step computation.
func (m *Model) Step(id string, state, control math.Vector, lef, t float64) (Output, error) {
	_ = lef
	c, err := m.aero.Step(id, state, control, t)
	if err != nil {
		return Output{}, err
	}
	return m.compose(state, control, c)
}

// Trim evaluates the mechanical model via the plugin's trim path (used
// only by the trim solver, spec.md §4.5).
func (m *Model) Trim(state, control math.Vector) (Output, error) {
	c, err := m.aero.Trim(state, control)
	if err != nil {
		return Output{}, err
	}
	return m.compose(state, control, c)
}

func (m *Model) compose(state, control, c math.Vector) (Output, error) {
	if !math.AllFinite(c) {
		return Output{}, fmt.Errorf("fly-ruler: mechanical model produced non-finite coefficients: %v", c)
	}

	phi, theta, psi := state[3], state[4], state[5]
	alpha, beta := state[7], state[8]
	p, q, r := state[9], state[10], state[11]
	velocity := state[6]
	if velocity < 0.01 {
		velocity = 0.01
	}
	altitude := state[2]

	tPhi, tTheta, tPsi := trigOf(phi), trigOfWithTan(theta), trigOf(psi)
	tAlpha, tBeta := trigOf(alpha), trigOf(beta)

	atmos := math.AtmosAt(altitude, velocity)

	u := velocity * tAlpha.c * tBeta.c
	v := velocity * tBeta.s
	w := velocity * tAlpha.s * tBeta.c

	npos := u*(tTheta.c*tPsi.c) + v*(tPhi.s*tPsi.c*tTheta.s-tPhi.c*tPsi.s) + w*(tPhi.c*tTheta.s*tPsi.c+tPhi.s*tPsi.s)
	epos := u*(tTheta.c*tPsi.s) + v*(tPhi.s*tPsi.s*tTheta.s+tPhi.c*tPsi.c) + w*(tPhi.c*tTheta.s*tPsi.s-tPhi.s*tPsi.c)
	hdot := u*tTheta.s - v*(tPhi.s*tTheta.c) - w*(tPhi.c*tTheta.c)

	phiDot := p + tTheta.t*(q*tPhi.s+r*tPhi.c)
	thetaDot := q*tPhi.c - r*tPhi.s
	psiDot := (q*tPhi.s + r*tPhi.c) / tTheta.c

	mass, s := m.constants.Mass, m.constants.WingArea
	thrust := control[0]

	uDot := r*v - q*w - G*tTheta.s + atmos.Qbar*s*c[0]/mass + thrust/mass
	vDot := p*w - r*u + G*tTheta.c*tPhi.s + atmos.Qbar*s*c[1]/mass
	wDot := q*u - p*v + G*tTheta.c*tPhi.c + atmos.Qbar*s*c[2]/mass

	velocityDot := (u*uDot + v*vDot + w*wDot) / velocity
	alphaDot := (u*wDot - w*uDot) / (u*u + w*w)
	betaDot := (vDot*velocity - v*velocityDot) / (velocity * velocity * tBeta.c)

	b, cBar, hEng := m.constants.WingSpan, m.constants.MeanChord, m.constants.EngineAngularMomentum
	jy, jxz, jz, jx := m.constants.Jy, m.constants.Jxz, m.constants.Jz, m.constants.Jx

	lTotal := c[3] * atmos.Qbar * s * b
	mTotal := c[4] * atmos.Qbar * s * cBar
	nTotal := c[5] * atmos.Qbar * s * b

	denom := jx*jz - jxz*jxz
	pDot := (jz*lTotal + jxz*nTotal - (jz*(jz-jy)+jxz*jxz)*q*r + jxz*(jx-jy+jz)*p*q + jxz*q*hEng) / denom
	qDot := (mTotal + (jz-jx)*p*r - jxz*(p*p-r*r) - r*hEng) / jy
	rDot := (jx*nTotal + jxz*lTotal + (jx*(jx-jy)+jxz*jxz)*p*q - jxz*(jx-jy+jz)*q*r + jx*q*hEng) / denom

	nxCg := 1.0/G*(uDot+q*w-r*v) + tTheta.s
	nyCg := 1.0/G*(vDot+r*u-p*w) - tTheta.c*tPhi.s
	nzCg := -1.0/G*(wDot+p*v-q*u) + tTheta.c*tPhi.c

	stateDot := math.Vector{npos, epos, hdot, phiDot, thetaDot, psiDot, velocityDot, alphaDot, betaDot, pDot, qDot, rDot}
	extend := Extend{Nx: nxCg, Ny: nyCg, Nz: nzCg, Mach: atmos.Mach, Qbar: atmos.Qbar, Ps: atmos.Ps}

	if !math.AllFinite(stateDot) {
		return Output{}, fmt.Errorf("fly-ruler: mechanical model produced non-finite state derivative")
	}

	return Output{StateDot: stateDot, Extend: extend}, nil
}
