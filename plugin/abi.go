// Package plugin loads aerodynamic-model shared libraries through the
// stable C ABI of spec.md §6 and exposes a typed wrapper over it.
//
// Grounded on _examples/original_source/fly_ruler_plugin/src/{manager.rs,
// model/{ffi.rs,model.rs}} for the lifecycle and symbol contract, and on
// _examples/FerrLab-airspace-acars's indirect dependency on
// github.com/ebitengine/purego for the mechanism (cgo-free dlopen/dlsym),
// since the teacher (mmp-vice) never loads native code at runtime.
package plugin

// State is the C-layout 12-state vector (spec.md §3, §6). Field order is
// fixed and must match the plugin ABI exactly:
// npos, epos, altitude, phi, theta, psi, velocity, alpha, beta, p, q, r.
type State struct {
	Npos, Epos, Altitude      float64
	Phi, Theta, Psi           float64
	Velocity, Alpha, Beta     float64
	P, Q, R                   float64
}

// Control is the C-layout 4-scalar control vector: thrust, elevator,
// aileron, rudder.
type Control struct {
	Thrust, Elevator, Aileron, Rudder float64
}

// C holds the six aerodynamic coefficients a plugin returns for a given
// (state, control) query: cx, cy, cz, cl, cm, cn.
type C struct {
	Cx, Cy, Cz float64
	Cl, Cm, Cn float64
}

// PlaneConstants are the 11 scalars a plugin reports once: mass, reference
// area, wingspan, mean chord, reference-point offsets (xcgr, xcg), engine
// angular momentum, and the principal/cross moments of inertia.
type PlaneConstants struct {
	Mass          float64
	WingArea      float64 // S
	WingSpan      float64 // B
	MeanChord     float64 // cbar
	XcgR          float64
	Xcg           float64
	Jy            float64
	Jxz           float64
	Jz            float64
	Jx            float64
	EngineAngularMomentum float64 // hx
}

// ControlLimit is the position+rate bound per control axis plus the α/β
// envelope. Field order grounded on
// _examples/original_source/crates/libs/lib_core/benches/plane_benchmark.rs.
type ControlLimit struct {
	ThrustCmdLimitTop    float64
	ThrustCmdLimitBottom float64
	ThrustRateLimit      float64
	EleCmdLimitTop       float64
	EleCmdLimitBottom    float64
	EleRateLimit         float64
	AilCmdLimitTop       float64
	AilCmdLimitBottom    float64
	AilRateLimit         float64
	RudCmdLimitTop       float64
	RudCmdLimitBottom    float64
	RudRateLimit         float64
	AlphaLimitTop        float64
	AlphaLimitBottom     float64
	BetaLimitTop         float64
	BetaLimitBottom      float64
}

// LogSeverity mirrors the levels the original's register_logger callback
// carries (trace/debug/info/warn/error), restored per SPEC_FULL.md §12.
type LogSeverity int32

const (
	LogTrace LogSeverity = iota
	LogDebug
	LogInfo
	LogWarn
	LogError
)
