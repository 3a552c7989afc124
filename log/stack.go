// Grounded on _examples/mmp-vice/pkg/log/stack.go verbatim in technique
// (skip-3 runtime.Callers + runtime.CallersFrames walk, stopping at
// main.main), with the trimmed module-path prefix updated to this module.
package log

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// StackFrame is one entry of a captured call stack.
type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

// Stack is a captured call stack.
type Stack []StackFrame

// Callstack captures the call stack above its caller, reusing fr's backing
// array when it has enough capacity.
func Callstack(fr Stack) Stack {
	var callers [16]uintptr
	n := runtime.Callers(3, callers[:])
	frames := runtime.CallersFrames(callers[:n])

	if cap(fr) < n {
		fr = make(Stack, n)
	} else {
		fr = fr[:n]
	}

	for i := 0; i < n; i++ {
		frame, more := frames.Next()
		fn := strings.TrimPrefix(frame.Function, "github.com/WindLX/fly-ruler/")
		fn = strings.TrimPrefix(fn, "main.")

		fr[i] = StackFrame{
			File:     filepath.Base(frame.File),
			Line:     frame.Line,
			Function: fn,
		}

		if !more || frame.Function == "main.main" {
			fr = fr[:i+1]
			break
		}
	}
	return fr
}

func (f StackFrame) String() string {
	return f.File + ":" + strconv.Itoa(f.Line) + ":" + f.Function
}

// Strings renders a captured stack as plain strings for attaching to a
// slog record.
func (fr Stack) Strings() []string {
	out := make([]string, len(fr))
	for i, f := range fr {
		out[i] = f.String()
	}
	return out
}
