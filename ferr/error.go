// Package ferr centralises the error taxonomy of the simulation engine.
//
// Grounded on _examples/original_source/crates/libs/lib_utils/src/error.rs
// (FrError/FatalCoreError/FatalPluginError/PluginInner), translated into
// idiomatic Go error values in the style of mmp-vice's server/dispatcher.go
// sentinel errors.
package ferr

import (
	"errors"
	"fmt"
)

// Sentinel errors usable with errors.Is.
var (
	ErrManagerNotInit  = errors.New("ferr: plugin manager used before init")
	ErrCoreNotInit     = errors.New("ferr: core used before init")
	ErrModelNotAvailable = errors.New("ferr: requested model unknown or disabled")
	ErrTrimNaN         = errors.New("ferr: trim optimiser produced a non-finite cost")
	ErrSync            = errors.New("ferr: channel send/recv on a closed channel")
)

// PluginSymbolMissingError reports that a required C ABI symbol was absent
// from a loaded shared library. Fatal to the plugin: its descriptor moves
// to Failed.
type PluginSymbolMissingError struct {
	Plugin string
	Symbol string
}

func (e *PluginSymbolMissingError) Error() string {
	return fmt.Sprintf("ferr: plugin %q missing required symbol %q", e.Plugin, e.Symbol)
}

// PluginInnerError reports a plugin call that returned a negative result
// code. name/code/ctx mirror the original PluginInner{name, result, reason}.
type PluginInnerError struct {
	Plugin  string
	Code    int32
	Context string
}

func (e *PluginInnerError) Error() string {
	return fmt.Sprintf("ferr: plugin %q failed with code %d: %s", e.Plugin, e.Code, e.Context)
}

// ControllerDroppedError reports that a plane's input channel closed while
// the plane was still live. Terminates that plane's task; surfaced to
// clients as LostPlane.
type ControllerDroppedError struct {
	PlaneID string
}

func (e *ControllerDroppedError) Error() string {
	return fmt.Sprintf("ferr: controller for plane %s dropped", e.PlaneID)
}

// IoError wraps a socket or filesystem failure. Cancels only the offending
// client group; the server continues.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string { return fmt.Sprintf("ferr: io %s: %v", e.Op, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// CodecError wraps a frame decode/encode failure.
type CodecError struct {
	Err error
}

func (e *CodecError) Error() string { return fmt.Sprintf("ferr: codec: %v", e.Err) }
func (e *CodecError) Unwrap() error { return e.Err }

// IsFatalToPlane reports whether err should terminate the owning plane task
// (PluginInner and ControllerDropped are; transient Io/Codec at the RPC
// layer are not plane-fatal, they are connection-fatal).
func IsFatalToPlane(err error) bool {
	var pie *PluginInnerError
	var cde *ControllerDroppedError
	return errors.As(err, &pie) || errors.As(err, &cde) || errors.Is(err, ErrTrimNaN)
}
