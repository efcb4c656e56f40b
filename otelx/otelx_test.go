package otelx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracer(t *testing.T) {
	var nilTracer *Tracer
	assert.False(t, nilTracer.IsLoaded())
	assert.True(t, NewTracer("test", nil).IsLoaded())

	sr := tracetest.NewSpanRecorder()
	tracer := NewTracer("test", sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	_, span := tracer.Tracer().Start(context.Background(), "span")
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "span", sr.Ended()[0].Name())
}

func TestMeter(t *testing.T) {
	var nilMeter *Meter
	assert.False(t, nilMeter.IsLoaded())
	assert.True(t, NewNoopMeter().IsLoaded())

	reader := sdkmetric.NewManualReader()
	m := NewMeter("test", sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	counter, err := m.Meter().Int64Counter("writes")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, "writes", rm.ScopeMetrics[0].Metrics[0].Name)
}
