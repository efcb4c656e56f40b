package internaltracex

import (
	"fmt"
	"runtime"
	"strings"
)

const maxStackTraceLength = 1024

// GetStackTrace returns the stack trace of the caller, truncated once it exceeds maxStackTraceLength.
// skipLevels is passed to runtime.Callers: GetStackTrace(2) starts at the function calling GetStackTrace.
func GetStackTrace(skipLevels int) string {
	pc := make([]uintptr, 10)
	n := runtime.Callers(skipLevels, pc)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pc[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more || sb.Len() > maxStackTraceLength {
			break
		}
	}

	return sb.String()
}
