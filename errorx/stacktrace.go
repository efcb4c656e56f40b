package errorx

import (
	"fmt"
	"runtime"
	"strings"
)

const stackTraceDepth = 32

// Frame is a single call site of a captured stack.
type Frame struct {
	File     string
	Line     int
	Function string
}

func (f Frame) String() string {
	return fmt.Sprintf("\tat %s (%s:%d)", shortname(f.Function), f.File, f.Line)
}

// Callers is a list of program counters returned by the runtime.Callers.
type Callers []uintptr

// Frames resolves the program counters into function, file and line information.
func (c Callers) Frames() []Frame {
	out := make([]Frame, 0, len(c))
	if len(c) == 0 {
		return out
	}

	frames := runtime.CallersFrames(c)
	for {
		frame, more := frames.Next()
		out = append(out, Frame{File: frame.File, Line: frame.Line, Function: frame.Function})
		if !more {
			return out
		}
	}
}

// String prints one frame per line.
func (c Callers) String() string {
	var sb strings.Builder
	for _, f := range c.Frames() {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func callers(skip int) Callers {
	pcs := make([]uintptr, stackTraceDepth)
	n := runtime.Callers(skip+2, pcs)
	return pcs[:n]
}

func shortname(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}
