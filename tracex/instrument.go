package tracex

import (
	"context"

	"github.com/clinia/searchx/loggerx"
	"github.com/clinia/searchx/otelx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	tracerProvider func(ctx context.Context) *otelx.Tracer
	loggerProvider func() *loggerx.Logger
)

const ComponentNameSeparator = "."

func ComponentName(packageName, structName string) string {
	return packageName + ComponentNameSeparator + structName
}

/*
Instrument starts a span named after the component and derives a logger carrying the span attributes
and the component name. `span.End()` must be called at the end of using the span.

	const indexComponentName = "elasticx.index"

	func (i *index) instrument(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span, *loggerx.Logger) {
		return tracex.Instrument(ctx, i.c.logger, i.c.tracer, indexComponentName, name, opts...)
	}

	func (i *index) Refresh(ctx context.Context) error {
		ctx, span, l := i.instrument(ctx, "Refresh")
		defer span.End()
	}
*/
func Instrument(ctx context.Context, lp loggerProvider, tp tracerProvider, componentName string, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span, *loggerx.Logger) {
	fullComponentName := ComponentName(componentName, name)
	ctx, span := tp(ctx).Tracer().Start(ctx, fullComponentName, opts...)
	l := lp().
		WithSpanStartOptions(opts...).
		WithFields(attribute.Key("component").String(fullComponentName))
	return ctx, span, l
}

// RecordError marks the span as failed and returns err unchanged.
func RecordError(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
