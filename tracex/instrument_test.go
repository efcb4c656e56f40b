package tracex

import (
	"context"
	"errors"
	"testing"

	"github.com/clinia/searchx/loggerx"
	loggerxtest "github.com/clinia/searchx/loggerx/test"
	"github.com/clinia/searchx/otelx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestComponentName(t *testing.T) {
	t.Run("should return component name", func(t *testing.T) {
		assert.Equal(t, "testComponent.testStructName", ComponentName("testComponent", "testStructName"))
	})
}

func TestInstrument(t *testing.T) {
	l, buf := loggerxtest.NewTestLoggerWithJSONBuffer(t)
	lp := func() *loggerx.Logger {
		return l
	}
	ot := otelx.NewNoopTracer("test")
	tp := func(ctx context.Context) *otelx.Tracer {
		return ot
	}

	t.Run("should return instrumentation outputs", func(t *testing.T) {
		ctx, span, logger := Instrument(context.Background(), lp, tp, "testComponent.testStruct", "testInstrument", trace.WithAttributes(attribute.Bool("test", true)))
		assert.Equal(t, span, trace.SpanFromContext(ctx))
		assert.NotSame(t, l, logger)

		logger.Info(ctx, "test message")

		records := loggerxtest.DecodeJSONLines(t, buf)
		require.Len(t, records, 1)
		assert.Equal(t, "test message", records[0]["msg"])
		assert.Equal(t, true, records[0]["test"])
		assert.Equal(t, "testComponent.testStruct.testInstrument", records[0]["component"])
	})
}

func TestRecordError(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	ot := otelx.NewTracer("test", provider)

	_, span := ot.Tracer().Start(context.Background(), "op")
	err := errors.New("boom")
	assert.Same(t, err, RecordError(span, err))
	assert.NoError(t, RecordError(span, nil))
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
}
