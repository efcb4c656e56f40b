package otelx

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer carries the tracer spans are started from.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the caller's provider. A nil provider yields a no-op tracer.
func NewTracer(name string, tp trace.TracerProvider) *Tracer {
	if tp == nil {
		return NewNoopTracer(name)
	}
	return &Tracer{tracer: tp.Tracer(name)}
}

// NewNoopTracer creates a tracer recording nothing.
func NewNoopTracer(name string) *Tracer {
	return &Tracer{tracer: noop.NewTracerProvider().Tracer(name)}
}

// IsLoaded returns true if the tracer has been loaded.
func (t *Tracer) IsLoaded() bool {
	return t != nil && t.tracer != nil
}

// Tracer returns the underlying OpenTelemetry tracer.
func (t *Tracer) Tracer() trace.Tracer {
	return t.tracer
}
