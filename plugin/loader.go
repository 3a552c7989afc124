package plugin

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/WindLX/fly-ruler/ferr"
)

// symbols is the set of C ABI entry points spec.md §6 requires every
// aerodynamic-model shared library to export.
type symbols struct {
	loadConstants   func(constants *PlaneConstants) int32
	loadCtrlLimits  func(limits *ControlLimit) int32
	install         func(argc int32, argv uintptr) int32
	uninstall       func() int32
	trim            func(state *State, control *Control, out *C) int32
	init            func(id *byte, state *State, control *Control) int32
	step            func(id *byte, state *State, control *Control, t float64, out *C) int32
	delete          func(id *byte) int32
	registerLogger  func(cb uintptr) int32
	hasRegisterLogger bool
}

var requiredSymbols = []string{
	"load_constants", "load_ctrl_limits", "install", "uninstall",
	"trim", "init", "step", "delete",
}

// Library is a loaded aerodynamic-model shared library: an OS handle plus
// its resolved symbol table. Dropping it (Close) unloads the library.
//
// Loading mechanism grounded on FerrLab-airspace-acars's indirect
// github.com/ebitengine/purego dependency: purego.Dlopen/Dlsym/RegisterFunc
// give cgo-free dynamic loading, matching the "dynamically loaded native
// plugin" requirement of spec.md §1 without requiring cgo in this module.
type Library struct {
	name   string
	handle uintptr
	sym    symbols
}

// Load opens the shared library at path (already resolved to the
// platform-specific filename by the caller) and resolves the required
// symbols. register_logger is optional; its absence is not fatal.
func Load(name, path string) (*Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, &ferr.IoError{Op: "dlopen " + path, Err: err}
	}

	lib := &Library{name: name, handle: handle}

	for _, s := range requiredSymbols {
		if _, err := purego.Dlsym(handle, s); err != nil {
			return nil, &ferr.PluginSymbolMissingError{Plugin: name, Symbol: s}
		}
	}

	purego.RegisterLibFunc(&lib.sym.loadConstants, handle, "load_constants")
	purego.RegisterLibFunc(&lib.sym.loadCtrlLimits, handle, "load_ctrl_limits")
	purego.RegisterLibFunc(&lib.sym.install, handle, "install")
	purego.RegisterLibFunc(&lib.sym.uninstall, handle, "uninstall")
	purego.RegisterLibFunc(&lib.sym.trim, handle, "trim")
	purego.RegisterLibFunc(&lib.sym.init, handle, "init")
	purego.RegisterLibFunc(&lib.sym.step, handle, "step")
	purego.RegisterLibFunc(&lib.sym.delete, handle, "delete")

	if _, err := purego.Dlsym(handle, "register_logger"); err == nil {
		purego.RegisterLibFunc(&lib.sym.registerLogger, handle, "register_logger")
		lib.sym.hasRegisterLogger = true
	}

	return lib, nil
}

// Close unloads the library.
func (l *Library) Close() error {
	return purego.Dlclose(l.handle)
}

func cstr(s string) *byte {
	b := append([]byte(s), 0)
	return &b[0]
}

// LoadConstants fills the plane-constants struct. Returns PluginInnerError
// on a negative result code.
func (l *Library) LoadConstants() (PlaneConstants, error) {
	var c PlaneConstants
	if r := l.sym.loadConstants(&c); r < 0 {
		return c, &ferr.PluginInnerError{Plugin: l.name, Code: r, Context: "load_constants"}
	}
	return c, nil
}

// LoadCtrlLimits fills the control-limit struct.
func (l *Library) LoadCtrlLimits() (ControlLimit, error) {
	var cl ControlLimit
	if r := l.sym.loadCtrlLimits(&cl); r < 0 {
		return cl, &ferr.PluginInnerError{Plugin: l.name, Code: r, Context: "load_ctrl_limits"}
	}
	return cl, nil
}

// Install performs one-shot global setup with the given argument list (e.g.
// data-table paths).
func (l *Library) Install(args []string) error {
	// The C ABI takes (argc, argv char**); purego does not (yet) marshal
	// nested pointer arrays automatically, so we build the argv block by
	// hand: an array of *byte laid out contiguously, passed as a uintptr.
	cstrs := make([]*byte, len(args))
	for i, a := range args {
		cstrs[i] = cstr(a)
	}
	var argv uintptr
	if len(cstrs) > 0 {
		argv = uintptr(unsafe.Pointer(&cstrs[0]))
	}
	if r := l.sym.install(int32(len(args)), argv); r < 0 {
		return &ferr.PluginInnerError{Plugin: l.name, Code: r, Context: "install"}
	}
	return nil
}

// Uninstall tears down global state installed by Install.
func (l *Library) Uninstall() error {
	if r := l.sym.uninstall(); r < 0 {
		return &ferr.PluginInnerError{Plugin: l.name, Code: r, Context: "uninstall"}
	}
	return nil
}

// Trim computes aerodynamic coefficients at equilibrium for (state, control).
func (l *Library) Trim(state *State, control *Control) (C, error) {
	var out C
	if r := l.sym.trim(state, control, &out); r < 0 {
		return out, &ferr.PluginInnerError{Plugin: l.name, Code: r, Context: "trim"}
	}
	return out, nil
}

// Init creates per-instance plugin state keyed by id.
func (l *Library) Init(id string, state *State, control *Control) error {
	if r := l.sym.init(cstr(id), state, control); r < 0 {
		return &ferr.PluginInnerError{Plugin: l.name, Code: r, Context: "init"}
	}
	return nil
}

// Step evaluates the model for instance id at simulated time t.
func (l *Library) Step(id string, state *State, control *Control, t float64) (C, error) {
	var out C
	if r := l.sym.step(cstr(id), state, control, t, &out); r < 0 {
		return out, &ferr.PluginInnerError{Plugin: l.name, Code: r, Context: fmt.Sprintf("step(%s)", id)}
	}
	return out, nil
}

// Delete releases per-instance state for id. Must be called exactly once
// per Init (spec.md §5 scheduler invariant).
func (l *Library) Delete(id string) error {
	if r := l.sym.delete(cstr(id)); r < 0 {
		return &ferr.PluginInnerError{Plugin: l.name, Code: r, Context: "delete"}
	}
	return nil
}

// RegisterLogger installs a host-side callback the plugin can use to report
// diagnostics, tagged with a severity level (SPEC_FULL.md §12). A no-op if
// the library does not export register_logger.
func (l *Library) RegisterLogger(cb func(level LogSeverity, msg string)) {
	if !l.sym.hasRegisterLogger {
		return
	}
	trampoline := purego.NewCallback(func(level int32, msg *byte) uintptr {
		cb(LogSeverity(level), goString(msg))
		return 0
	})
	l.sym.registerLogger(trampoline)
}

func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for {
		b := *(*byte)(unsafe.Pointer(uintptr(unsafe.Pointer(p)) + uintptr(n)))
		if b == 0 {
			break
		}
		n++
	}
	return unsafe.String(p, n)
}
