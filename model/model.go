// Package model is the typed aerodynamic-model facade over the plugin C
// ABI (spec.md §4.2): it converts between the engine's math.Vector-based
// state/control representation and the plugin package's C-layout structs.
//
// Grounded on _examples/original_source/crates/libs/lib_plugin/src/model/model.rs
// (AerodynamicModel wrapping load_constants/load_ctrl_limits/trim/init/step).
package model

import (
	"github.com/WindLX/fly-ruler/math"
	"github.com/WindLX/fly-ruler/plugin"
)

// AerodynamicModel is a typed facade over one loaded plugin descriptor.
type AerodynamicModel struct {
	desc *plugin.Descriptor
}

// New wraps a loaded, installed plugin descriptor.
func New(desc *plugin.Descriptor) *AerodynamicModel {
	return &AerodynamicModel{desc: desc}
}

// Name returns the wrapped plugin's declared name.
func (m *AerodynamicModel) Name() string { return m.desc.Info.Name }

// LoadConstants returns the plugin's plane constants.
func (m *AerodynamicModel) LoadConstants() (plugin.PlaneConstants, error) {
	c, err := m.desc.Lib.LoadConstants()
	if err != nil {
		m.desc.MarkFailed()
	}
	return c, err
}

// LoadCtrlLimits returns the plugin's control limits.
func (m *AerodynamicModel) LoadCtrlLimits() (plugin.ControlLimit, error) {
	cl, err := m.desc.Lib.LoadCtrlLimits()
	if err != nil {
		m.desc.MarkFailed()
	}
	return cl, err
}

// stateFromVector converts the engine's 12-element state vector into the
// plugin's C-layout State struct, in the fixed field order of spec.md §3.
func stateFromVector(v math.Vector) plugin.State {
	return plugin.State{
		Npos: v[0], Epos: v[1], Altitude: v[2],
		Phi: v[3], Theta: v[4], Psi: v[5],
		Velocity: v[6], Alpha: v[7], Beta: v[8],
		P: v[9], Q: v[10], R: v[11],
	}
}

func controlFromVector(u math.Vector) plugin.Control {
	return plugin.Control{Thrust: u[0], Elevator: u[1], Aileron: u[2], Rudder: u[3]}
}

// CVector converts a plugin.C into a 6-element math.Vector (cx, cy, cz, cl,
// cm, cn) for use by the mechanical model.
func CVector(c plugin.C) math.Vector {
	return math.Vector{c.Cx, c.Cy, c.Cz, c.Cl, c.Cm, c.Cn}
}

// Trim invokes the plugin's trim path: aerodynamic coefficients at
// equilibrium for (state, control).
func (m *AerodynamicModel) Trim(state, control math.Vector) (math.Vector, error) {
	s, u := stateFromVector(state), controlFromVector(control)
	c, err := m.desc.Lib.Trim(&s, &u)
	if err != nil {
		m.desc.MarkFailed()
		return nil, err
	}
	return CVector(c), nil
}

// Init creates per-instance plugin state keyed by id (must precede Step).
func (m *AerodynamicModel) Init(id string, state, control math.Vector) error {
	s, u := stateFromVector(state), controlFromVector(control)
	if err := m.desc.Lib.Init(id, &s, &u); err != nil {
		m.desc.MarkFailed()
		return err
	}
	return nil
}

// Step evaluates the model for instance id at simulated time t.
func (m *AerodynamicModel) Step(id string, state, control math.Vector, t float64) (math.Vector, error) {
	s, u := stateFromVector(state), controlFromVector(control)
	c, err := m.desc.Lib.Step(id, &s, &u, t)
	if err != nil {
		m.desc.MarkFailed()
		return nil, err
	}
	return CVector(c), nil
}

// Delete releases per-instance plugin state for id exactly once.
func (m *AerodynamicModel) Delete(id string) error {
	return m.desc.Lib.Delete(id)
}
