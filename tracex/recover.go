package tracex

import (
	"context"

	internaltracex "github.com/clinia/searchx/internal/tracex"
	"github.com/clinia/searchx/loggerx"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// RecoverWithStackTrace recovers from a panic and logs the message with a stack trace.
// It should only be used as a defer statement at the beginning of a function.
// i.e. defer tracex.RecoverWithStackTrace(ctx, l, "panic while checking cluster health")
func RecoverWithStackTrace(ctx context.Context, l *loggerx.Logger, msg string) {
	// We don't want the recoverer itself to panic - that would be a shame.
	defer func() {
		recover()
	}()

	if r := recover(); r != nil {
		if l == nil {
			return
		}

		l.Error(ctx, msg, StackTraceAttrs(r)...)
	}
}

// StackTraceAttrs describes a recovered panic value as exception attributes.
func StackTraceAttrs(recovered any) []attribute.KeyValue {
	out := []attribute.KeyValue{}
	if recovered == nil {
		return out
	}
	stackTrace := internaltracex.GetStackTrace(3)
	out = append(out, semconv.ExceptionStacktrace(stackTrace))
	out = append(out, semconv.ExceptionMessage(PanicMessage(recovered)))

	return out
}

// PanicMessage returns a printable message for a recovered panic value.
func PanicMessage(recovered any) string {
	switch v := recovered.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return "unknown panic"
	}
}
